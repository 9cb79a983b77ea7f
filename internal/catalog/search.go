package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/extract"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
)

const (
	searchPath = "/Search/Results"

	DefaultSearchIndex = "Keyword"
	DefaultSearchLimit = 20
)

// pickupProbeQuery is searched to find any holdable record whose hold form lists the pickup
// branches.
const pickupProbeQuery = "test"

func searchURL(query, index string) string {
	params := url.Values{}
	params.Set("lookfor", query)
	params.Set("searchIndex", index)
	params.Set("view", "list")
	return searchPath + "?" + params.Encode()
}

// Search runs a catalog search. Searches are rendered in the browser in every mode. At most
// `limit` results are returned, a limit <= 0 returns every result on the first page.
func (c *Client) Search(ctx context.Context, query, index string, limit int) ([]library.SearchResult, error) {
	input := map[string]any{"query": query, "index": index, "limit": limit}
	return traced(ctx, "Search", input, func(ctx context.Context) ([]library.SearchResult, error) {
		query = strings.TrimSpace(query)
		if query == "" {
			return nil, fmt.Errorf("%w: search query is empty", ErrInvalidArgument)
		}
		if strings.TrimSpace(index) == "" {
			index = DefaultSearchIndex
		}

		markup, err := c.render(ctx, searchURL(query, index))
		if c.blocked("search", err) {
			return []library.SearchResult{}, nil
		}
		if err != nil {
			return nil, err
		}

		batch := extract.SearchResults(markup)
		reportSkipped(c, "search", batch.Skipped())
		results := batch.Values()
		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	})
}

// PickupLocations lists the branches a hold can be picked up at, as offered by the hold form
// of the first holdable record of a search.
func (c *Client) PickupLocations(ctx context.Context) ([]library.PickupLocation, error) {
	return traced(ctx, "PickupLocations", nil, func(ctx context.Context) ([]library.PickupLocation, error) {
		locations, err := withSession(ctx, c, func(ctx context.Context) ([]library.PickupLocation, error) {
			markup, err := c.render(ctx, searchURL(pickupProbeQuery, DefaultSearchIndex))
			if err != nil {
				return nil, err
			}
			link := extract.FirstHoldLink(markup)
			if link == "" {
				c.warn(report_catalog_pickup, "no holdable record found to read pickup locations from")
				return []library.PickupLocation{}, nil
			}
			target, err := c.relativePath(link)
			if err != nil {
				return nil, err
			}
			markup, err = c.fetchPage(ctx, target)
			if err != nil {
				return nil, err
			}
			return extract.PickupLocations(markup), nil
		})
		if c.blocked("pickup locations", err) {
			return []library.PickupLocation{}, nil
		}
		return locations, err
	})
}

// relativePath turns a link found on a catalog page into a path on the catalog.
func (c *Client) relativePath(link string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.Host != base.Host {
		return "", errors.New("link leaves the catalog: " + link)
	}
	path := resolved.EscapedPath()
	if resolved.RawQuery != "" {
		path += "?" + resolved.RawQuery
	}
	return path, nil
}
