package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/extract"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/session"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
)

const (
	checkedOutPath = "/MyAccount/CheckedOut"
	holdsPath      = "/MyAccount/Holds"
)

// errBlocked means the catalog served an anti-automation challenge instead of the requested
// content. Read operations degrade to an empty result with a warning.
var errBlocked = errors.New("the catalog answered with an anti-automation challenge")

// classifyPage reports pages that are not the content that was asked for.
func classifyPage(markup string) error {
	if extract.IsChallenge(markup) {
		return errBlocked
	}
	if extract.HasLoginForm(markup) {
		return session.ErrSessionStale
	}
	return nil
}

// fetchJSON calls the account json endpoint. An html answer is classified, and returned as
// the payload when it is neither a challenge nor the login page.
func (c *Client) fetchJSON(ctx context.Context, params map[string]string) ([]byte, error) {
	body, err := c.requests.GetJSON(ctx, session.AccountAJAX, params)
	if err == nil {
		return body, nil
	}

	var notJSON *transport.NotJSONError
	if errors.As(err, &notJSON) {
		err = classifyPage(string(notJSON.Body))
		if err != nil {
			return nil, err
		}
		return notJSON.Body, nil
	}

	var status *transport.StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusUnauthorized:
			return nil, session.ErrSessionStale
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return nil, errBlocked
		}
	}
	return nil, err
}

// render shows a catalog page in the browser and returns its html.
func (c *Client) render(ctx context.Context, path string) (string, error) {
	err := c.shareCookies(ctx)
	if err != nil {
		return "", err
	}
	err = c.browser.Navigate(ctx, c.baseURL+path, transport.Settle{Delay: transport.SettleDelay})
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

// fetchPage renders an account page, which shows the login form once the session is stale.
func (c *Client) fetchPage(ctx context.Context, path string) (string, error) {
	markup, err := c.render(ctx, path)
	if err != nil {
		return "", err
	}
	if extract.HasLoginForm(markup) {
		return "", session.ErrSessionStale
	}
	return markup, nil
}

// accountData fetches one kind of account data over the channel the mode allows: the json
// endpoint in interactive mode, the rendered page in replay mode.
func (c *Client) accountData(ctx context.Context, method, page string) ([]byte, error) {
	if c.mode == session.Replay {
		markup, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		return []byte(markup), nil
	}

	params := map[string]string{"method": method}
	if method != "getMenuDataIls" {
		params["source"] = "all"
	}
	return c.fetchJSON(ctx, params)
}

// blocked turns errBlocked into a warning, reporting whether it did.
func (c *Client) blocked(op string, err error) bool {
	if !errors.Is(err, errBlocked) {
		return false
	}
	c.warn(report_catalog_blocked, fmt.Sprintf("%s: the catalog served an anti-automation challenge, returning no results", op))
	return true
}

func reportSkipped[T any](c *Client, list string, rows []extract.Row[T]) {
	if len(rows) == 0 {
		return
	}
	for _, row := range rows {
		c.tel.ReportDebug("skipped row", "list", list, "index", row.Index, "reason", row.Err)
	}
	c.tel.ReportCount(report_catalog_rows, int64(len(rows)))
}

// AccountSummary returns the account overview. Counters the catalog doesn't provide are 0.
func (c *Client) AccountSummary(ctx context.Context) (library.AccountSummary, error) {
	return traced(ctx, "AccountSummary", nil, func(ctx context.Context) (library.AccountSummary, error) {
		summary, err := withSession(ctx, c, func(ctx context.Context) (library.AccountSummary, error) {
			payload, err := c.accountData(ctx, "getMenuDataIls", session.AccountPath)
			if err != nil {
				return library.AccountSummary{}, err
			}
			return extract.AccountSummary(payload), nil
		})
		if c.blocked("account summary", err) {
			return library.AccountSummary{}, nil
		}
		return summary, err
	})
}

// Checkouts returns the checked out items in the order the catalog lists them.
func (c *Client) Checkouts(ctx context.Context) ([]library.Checkout, error) {
	return traced(ctx, "Checkouts", nil, func(ctx context.Context) ([]library.Checkout, error) {
		batch, err := withSession(ctx, c, func(ctx context.Context) (extract.Batch[library.Checkout], error) {
			payload, err := c.accountData(ctx, "getCheckouts", checkedOutPath)
			if err != nil {
				return extract.Batch[library.Checkout]{}, err
			}
			return extract.Checkouts(payload), nil
		})
		if c.blocked("checkouts", err) {
			return []library.Checkout{}, nil
		}
		if err != nil {
			return nil, err
		}
		reportSkipped(c, "checkouts", batch.Skipped())
		return batch.Values(), nil
	})
}

// Holds returns the holds in the order the catalog lists them.
func (c *Client) Holds(ctx context.Context) ([]library.Hold, error) {
	return traced(ctx, "Holds", nil, func(ctx context.Context) ([]library.Hold, error) {
		batch, err := withSession(ctx, c, func(ctx context.Context) (extract.Batch[library.Hold], error) {
			payload, err := c.accountData(ctx, "getHolds", holdsPath)
			if err != nil {
				return extract.Batch[library.Hold]{}, err
			}
			return extract.Holds(payload), nil
		})
		if c.blocked("holds", err) {
			return []library.Hold{}, nil
		}
		if err != nil {
			return nil, err
		}
		reportSkipped(c, "holds", batch.Skipped())
		return batch.Values(), nil
	})
}
