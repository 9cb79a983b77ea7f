// Package catalog is the client for the library's Aspen Discovery catalog. It composes the
// session manager, both transport channels and the extraction engine into one operation per
// thing a patron does: read the account, search, place holds and renew.
package catalog

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/assert"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/telemetry"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/session"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/restyutil"
)

const (
	report_catalog_login    = "catalog.login"
	report_catalog_blocked  = "catalog.blocked"
	report_catalog_rows     = "catalog.skipped-rows"
	report_catalog_close    = "catalog.close"
	report_catalog_pickup   = "catalog.pickup-location"
	report_catalog_renew    = "catalog.renew"
	report_catalog_warnings = "catalog.warnings"
)

const DefaultBaseURL = "https://catalog.hmcpl.org"

// ErrLoginFailed is returned when logging in ended without either a success signal or an
// explicit rejection.
var ErrLoginFailed = errors.New("failed to login")

// ErrInvalidArgument is returned for operation arguments that can never succeed.
var ErrInvalidArgument = errors.New("invalid argument")

type Config struct {
	// BaseURL of the catalog, DefaultBaseURL when empty.
	BaseURL string
	Barcode string
	PIN     string
	Mode    session.Mode
	Paths   session.Paths
	// Timeout bounds every request, navigation and element wait. 0 means 60 seconds.
	Timeout time.Duration
	// ChromePath overrides the browser binary.
	ChromePath string
	Telemetry  telemetry.API

	// DumpDir, when set, receives a file per request channel exchange. It is cleared first.
	DumpDir string

	// Requests and Browser replace the default channels.
	//
	// note: fault injection point
	Requests transport.RequestChannel
	Browser  transport.Browser
}

// Client talks to one catalog account.
//
// A Client holds a single session: one cookie set and one browser tab. It is not safe for
// concurrent use, callers that need parallelism should create independent clients with their
// own session files. Close must be called to release the browser.
type Client struct {
	baseURL  string
	host     string
	mode     session.Mode
	requests transport.RequestChannel
	browser  transport.Browser
	session  *session.Manager
	tel      telemetry.API

	warnings []string
	closed   bool
}

func New(cfg Config) (*Client, error) {
	assert.NotNil(cfg.Telemetry)

	if strings.TrimSpace(cfg.Barcode) == "" || cfg.PIN == "" {
		return nil, &session.ConfigError{Message: "library card barcode and pin are required"}
	}
	if cfg.Paths.CookieFile == "" || cfg.Paths.BrowserStateFile == "" {
		return nil, &session.ConfigError{Message: "session file paths are required"}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, &session.ConfigError{Message: "invalid catalog url " + baseURL, Err: err}
	}

	tel := telemetry.NewScopedAPI("catalog", cfg.Telemetry)
	store := session.NewStore(cfg.Paths)

	requests := cfg.Requests
	if requests == nil {
		cookies, err := store.LoadCookies()
		if err != nil {
			tel.ReportWarning(report_catalog_login, "ignoring unreadable cookie cache", err)
			cookies = nil
		}
		var dump restyutil.Output
		if cfg.DumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
			if err != nil {
				return nil, &session.ConfigError{Message: "create dump directory", Err: err}
			}
			dump = output
		}
		requests, err = transport.NewRequests(transport.RequestsOptions{
			BaseURL:   baseURL,
			Timeout:   cfg.Timeout,
			Cookies:   cookies,
			Telemetry: cfg.Telemetry,
			Dump:      dump,
		})
		if err != nil {
			return nil, err
		}
	}

	browser := cfg.Browser
	if browser == nil {
		browser = transport.NewLazyBrowser(func(ctx context.Context) (transport.Browser, error) {
			var state *transport.StorageState
			if cfg.Mode == session.Replay {
				loaded, err := store.LoadBrowserState()
				if err != nil {
					return nil, &session.ConfigError{Message: "read saved browser session", Err: err}
				}
				state = loaded
			}
			return transport.LaunchChrome(ctx, transport.ChromeOptions{
				Headless:  cfg.Mode == session.Replay,
				Timeout:   cfg.Timeout,
				State:     state,
				ExecPath:  cfg.ChromePath,
				Telemetry: cfg.Telemetry,
			})
		})
	}

	manager := session.NewManager(session.Options{
		BaseURL: baseURL,
		Mode:    cfg.Mode,
		Credentials: session.Credentials{
			Barcode: strings.TrimSpace(cfg.Barcode),
			PIN:     cfg.PIN,
		},
		Store:     store,
		Requests:  requests,
		Browser:   browser,
		Telemetry: cfg.Telemetry,
	})

	return &Client{
		baseURL:  baseURL,
		host:     base.Hostname(),
		mode:     cfg.Mode,
		requests: requests,
		browser:  browser,
		session:  manager,
		tel:      tel,
	}, nil
}

func (c *Client) Mode() session.Mode {
	return c.mode
}

// Login makes sure the client is authenticated, logging in again when `force` is set even if
// the saved session is still alive.
func (c *Client) Login(ctx context.Context, force bool) error {
	_, err := traced(ctx, "Login", map[string]bool{"force": force}, func(ctx context.Context) (bool, error) {
		ok, err := c.session.EnsureSession(ctx, force)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrLoginFailed
		}
		return true, nil
	})
	return err
}

// ensure logs in unless the session was already verified.
func (c *Client) ensure(ctx context.Context) error {
	if c.session.State() == session.Authenticated {
		return nil
	}
	ok, err := c.session.EnsureSession(ctx, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoginFailed
	}
	return nil
}

// withSession runs `fn` with an authenticated session. When `fn` finds the session stale the
// session is recovered once and `fn` is retried once.
func withSession[T any](ctx context.Context, c *Client, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	err := c.ensure(ctx)
	if err != nil {
		return zero, err
	}

	res, err := fn(ctx)
	if !errors.Is(err, session.ErrSessionStale) {
		return res, err
	}

	c.session.Invalidate()
	err = c.session.Recover(ctx)
	if err != nil {
		return zero, err
	}
	res, err = fn(ctx)
	if errors.Is(err, session.ErrSessionStale) {
		return zero, &session.AuthError{Message: "the catalog rejected the session right after logging in", Err: err}
	}
	return res, err
}

// warn records a warning for the caller, see Warnings.
func (c *Client) warn(id, message string) {
	c.warnings = append(c.warnings, message)
	c.tel.ReportWarning(id, message)
}

// Warnings returns and clears the warnings collected since the last call. Warnings describe
// degraded results, like an empty list returned because the catalog served an anti-automation
// challenge instead of the page.
func (c *Client) Warnings() []string {
	out := c.warnings
	c.warnings = nil
	if len(out) > 0 {
		c.tel.ReportCount(report_catalog_warnings, int64(len(out)))
	}
	return out
}

// Close releases the browser and the request channel. It is safe to call more than once and
// after a failed operation.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.requests.Close()
	err := c.browser.Close()
	if err != nil {
		c.tel.ReportBroken(report_catalog_close, err)
	}
	return err
}

// shareCookies hands the request channel's cookies to the browser. In interactive mode the
// session may have been verified without ever touching the browser.
func (c *Client) shareCookies(ctx context.Context) error {
	if c.mode == session.Replay {
		return nil
	}
	cookies := c.requests.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	list := make([]transport.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, transport.Cookie{
			Name:    name,
			Value:   value,
			Domain:  c.host,
			Path:    "/",
			Expires: -1,
			Secure:  strings.HasPrefix(c.baseURL, "https://"),
		})
	}
	return c.browser.AddCookies(ctx, list)
}
