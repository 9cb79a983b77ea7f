package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/extract"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/session"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/textutil"
)

const (
	// RenewControlMissing is the message of a renewal that found no renew control for the item.
	RenewControlMissing = "Could not find renew button for this item"
	// BlockedMessage is the message of a hold or renewal the catalog answered with a challenge.
	BlockedMessage = "The catalog blocked the request with an anti-automation challenge, please try again later"
)

func holdPath(recordID string) string {
	return "/Record/" + url.PathEscape(recordID) + "/Hold"
}

// PlaceHold places a hold on a record. When `pickup` is set, the first pickup branch whose
// label contains it (case-insensitively) is selected, otherwise the catalog's default is used.
//
// The result reflects the banner the catalog shows after submitting. A page without one is a
// failed result with an "unknown result" message, never a success.
func (c *Client) PlaceHold(ctx context.Context, recordID, pickup string) (library.HoldResult, error) {
	input := map[string]string{"record_id": recordID, "pickup_location": pickup}
	return traced(ctx, "PlaceHold", input, func(ctx context.Context) (library.HoldResult, error) {
		recordID = strings.TrimSpace(recordID)
		if recordID == "" {
			return library.HoldResult{}, fmt.Errorf("%w: record id is empty", ErrInvalidArgument)
		}

		result, err := withSession(ctx, c, func(ctx context.Context) (library.HoldResult, error) {
			return c.placeHold(ctx, recordID, strings.TrimSpace(pickup))
		})
		if errors.Is(err, errBlocked) {
			c.warn(report_catalog_blocked, "place hold: the catalog served an anti-automation challenge")
			return library.HoldResult{Success: false, Message: BlockedMessage}, nil
		}
		return result, err
	})
}

func (c *Client) placeHold(ctx context.Context, recordID, pickup string) (library.HoldResult, error) {
	markup, err := c.fetchPage(ctx, holdPath(recordID))
	if err != nil {
		return library.HoldResult{}, err
	}

	if pickup != "" {
		err = c.selectPickup(ctx, markup, pickup)
		if err != nil {
			return library.HoldResult{}, err
		}
	}

	submit := extract.Match(markup, extract.HoldSubmit)
	if submit == "" {
		return extract.HoldOutcome(markup), nil
	}

	after, err := c.interact(ctx, submit)
	if err != nil {
		return library.HoldResult{}, err
	}
	return extract.HoldOutcomeSince(markup, after), nil
}

func (c *Client) selectPickup(ctx context.Context, markup, pickup string) error {
	locations := extract.PickupLocations(markup)
	labels := make([]string, len(locations))
	for i, l := range locations {
		labels[i] = l.Label
	}

	best := textutil.BestSubstringMatch(pickup, labels)
	if best < 0 {
		c.warn(report_catalog_pickup, fmt.Sprintf("no pickup location matches %q, using the catalog's default", pickup))
		return nil
	}
	c.tel.ReportDebug("selected pickup location", "query", pickup, "label", locations[best].Label)
	return c.browser.SelectOption(ctx, extract.Match(markup, extract.PickupSelect), locations[best].Value)
}

// interact clicks `selector` and returns the page once it settled.
func (c *Client) interact(ctx context.Context, selector string) (string, error) {
	err := c.browser.Click(ctx, selector)
	if err != nil {
		return "", err
	}
	err = c.browser.WaitIdle(ctx, transport.Settle{Delay: transport.SettleDelay})
	if err != nil {
		return "", err
	}
	markup, err := c.browser.HTML(ctx)
	if err != nil {
		return "", err
	}
	if extract.IsChallenge(markup) {
		return "", errBlocked
	}
	return markup, nil
}

// RenewItem renews one checkout.
//
// In interactive mode the renewal endpoint is tried first. When it gives no usable answer,
// and always in replay mode, the item's renew control on the checkouts page is clicked. A
// missing renew control is a failed result, not an error.
func (c *Client) RenewItem(ctx context.Context, itemID string) (library.RenewResult, error) {
	return traced(ctx, "RenewItem", map[string]string{"item_id": itemID}, func(ctx context.Context) (library.RenewResult, error) {
		itemID = strings.TrimSpace(itemID)
		if itemID == "" {
			return library.RenewResult{}, fmt.Errorf("%w: item id is empty", ErrInvalidArgument)
		}

		result, err := withSession(ctx, c, func(ctx context.Context) (library.RenewResult, error) {
			if c.mode == session.Interactive {
				result, ok, err := c.renewRequest(ctx, itemID)
				if err != nil || ok {
					return result, err
				}
			}
			return c.renewInPage(ctx, itemID)
		})
		if errors.Is(err, errBlocked) {
			c.warn(report_catalog_blocked, "renew: the catalog served an anti-automation challenge")
			return library.RenewResult{ItemID: itemID, Success: false, Message: BlockedMessage}, nil
		}
		return result, err
	})
}

// renewRequest renews over the request channel. It reports false when the answer can't be
// used and the page should be tried instead.
func (c *Client) renewRequest(ctx context.Context, itemID string) (library.RenewResult, bool, error) {
	body, err := c.requests.PostForm(ctx, session.AccountAJAX, map[string]string{
		"method":      "renewItem",
		"itemId":      itemID,
		"itemBarcode": itemID,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return library.RenewResult{}, false, ctxErr
		}
		c.tel.ReportDebug("renew request failed, trying the checkouts page", "item", itemID, "err", err)
		return library.RenewResult{}, false, nil
	}

	result, ok := extract.RenewJSON(body, itemID)
	if !ok {
		c.tel.ReportDebug("renew answer unusable, trying the checkouts page", "item", itemID)
	}
	return result, ok, nil
}

func (c *Client) renewInPage(ctx context.Context, itemID string) (library.RenewResult, error) {
	markup, err := c.fetchPage(ctx, checkedOutPath)
	if err != nil {
		return library.RenewResult{}, err
	}

	control := extract.FindRenewControl(markup, itemID)
	if control == "" {
		c.tel.ReportWarning(report_catalog_renew, "no renew control", itemID)
		return library.RenewResult{ItemID: itemID, Success: false, Message: RenewControlMissing}, nil
	}

	// the checkouts page is not reloaded between renewals, banners of earlier ones stay on it
	after, err := c.interact(ctx, control)
	if err != nil {
		return library.RenewResult{}, err
	}
	return extract.RenewOutcomeSince(markup, after, itemID), nil
}

// RenewAll attempts to renew every checkout marked renewable and returns one result per
// attempt. A failing item does not stop the others, only configuration and authentication
// errors (and cancellation) end the run early.
func (c *Client) RenewAll(ctx context.Context) ([]library.RenewResult, error) {
	return traced(ctx, "RenewAll", nil, func(ctx context.Context) ([]library.RenewResult, error) {
		checkouts, err := c.Checkouts(ctx)
		if err != nil {
			return nil, err
		}

		results := []library.RenewResult{}
		for _, checkout := range checkouts {
			if !checkout.CanRenew {
				continue
			}
			result, err := c.RenewItem(ctx, checkout.ID)
			if err != nil {
				if fatal(ctx, err) {
					return results, err
				}
				result = library.RenewResult{ItemID: checkout.ID, Success: false, Message: err.Error()}
			}
			results = append(results, result)
		}
		return results, nil
	})
}

func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var configErr *session.ConfigError
	var authErr *session.AuthError
	return errors.As(err, &configErr) || errors.As(err, &authErr)
}
