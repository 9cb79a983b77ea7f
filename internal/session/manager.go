// Package session keeps the client authenticated against the catalog. It owns the login state
// machine, the liveness probe and the two persisted session files.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/assert"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/telemetry"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/extract"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
)

const (
	report_session_probe   = "session.probe"
	report_session_login   = "session.login"
	report_session_persist = "session.persist"
	report_session_cache   = "session.cookie-cache"
)

const (
	AccountPath  = "/MyAccount/Home"
	AccountAJAX  = "/MyAccount/AJAX"
	menuDataCall = "getMenuDataIls"
)

// Mode selects how the manager authenticates.
type Mode int

const (
	// Interactive logs in through the browser and probes liveness over the request channel.
	Interactive Mode = iota
	// Replay restores a saved browser session and does all work in the browser.
	Replay
)

func (m Mode) String() string {
	switch m {
	case Interactive:
		return "interactive"
	case Replay:
		return "replay"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Credentials struct {
	Barcode string
	PIN     string
}

func (c Credentials) empty() bool {
	return strings.TrimSpace(c.Barcode) == "" || c.PIN == ""
}

type Options struct {
	BaseURL     string
	Mode        Mode
	Credentials Credentials
	Store       Store
	Requests    transport.RequestChannel
	Browser     transport.Browser
	Telemetry   telemetry.API
}

// Manager drives the login state machine. It is not safe for concurrent use.
type Manager struct {
	baseURL     string
	mode        Mode
	credentials Credentials
	store       Store
	requests    transport.RequestChannel
	browser     transport.Browser
	tel         telemetry.API

	state State
}

func NewManager(opts Options) *Manager {
	assert.NotNil(opts.Telemetry)
	assert.NotNil(opts.Requests)
	assert.NotNil(opts.Browser)
	assert.NotEmptyStr(opts.BaseURL)

	return &Manager{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		mode:        opts.Mode,
		credentials: opts.Credentials,
		store:       opts.Store,
		requests:    opts.Requests,
		browser:     opts.Browser,
		tel:         telemetry.NewScopedAPI("session", opts.Telemetry),
	}
}

func (m *Manager) Mode() Mode {
	return m.mode
}

func (m *Manager) State() State {
	return m.state
}

// Invalidate marks the session as unauthenticated, the next EnsureSession will probe again.
func (m *Manager) Invalidate() {
	m.state = Unauthenticated
}

// EnsureSession makes sure the client holds an authenticated session.
//
// Unless `force` is set, a persisted session that is still alive is reused without any
// interactive step. Otherwise the login form is filled with the configured credentials. It
// returns false when the outcome of the login is ambiguous, and an *AuthError when the catalog
// explicitly rejected the credentials. The session files are written on success only.
func (m *Manager) EnsureSession(ctx context.Context, force bool) (bool, error) {
	if m.mode == Replay {
		state, err := m.store.LoadBrowserState()
		if err != nil {
			return false, &ConfigError{Message: "read saved browser session", Err: err}
		}
		if state == nil {
			return false, &ConfigError{Message: fmt.Sprintf(
				"replay mode requires a saved browser session at %s, log in once in interactive mode to create it",
				m.store.Paths().BrowserStateFile,
			)}
		}
	}

	m.state = Verifying
	ok, err := m.ensure(ctx, force)
	if err != nil || !ok {
		m.state = Unauthenticated
		return ok, err
	}
	m.state = Authenticated
	return true, nil
}

func (m *Manager) ensure(ctx context.Context, force bool) (bool, error) {
	if !force {
		alive, err := m.probeCached(ctx)
		if err != nil {
			return false, err
		}
		if alive {
			m.tel.ReportDebug("reusing persisted session", "mode", m.mode.String())
			return true, nil
		}
	}
	return m.login(ctx)
}

// probeCached checks whether the persisted session is still accepted.
func (m *Manager) probeCached(ctx context.Context) (bool, error) {
	if m.mode == Replay {
		return m.probeBrowser(ctx)
	}

	cookies, err := m.store.LoadCookies()
	if err != nil {
		m.tel.ReportWarning(report_session_cache, err)
		return false, nil
	}
	if len(cookies) == 0 {
		return false, nil
	}
	err = m.requests.SetCookies(cookies)
	if err != nil {
		return false, err
	}
	return m.Probe(ctx)
}

// Probe asks the catalog whether the current session is alive. Transport failures count as
// "not alive", only cancellation is returned as an error.
func (m *Manager) Probe(ctx context.Context) (bool, error) {
	if m.mode == Replay {
		return m.probeBrowser(ctx)
	}

	body, err := m.requests.GetJSON(ctx, AccountAJAX, map[string]string{"method": menuDataCall})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		m.tel.ReportDebug("probe failed", "err", err)
		return false, nil
	}
	return probeAlive(body), nil
}

func probeAlive(body []byte) bool {
	obj, ok := extract.DecodeObject(body)
	if ok {
		if success, ok := (extract.Keys{"success"}).Bool(obj); ok && success {
			return true
		}
	}
	return strings.Contains(string(body), "numCheckedOut")
}

func (m *Manager) probeBrowser(ctx context.Context) (bool, error) {
	err := m.browser.Navigate(ctx, m.baseURL+AccountPath, transport.Settle{Delay: transport.SettleDelay})
	if err != nil {
		return false, err
	}
	markup, err := m.browser.HTML(ctx)
	if err != nil {
		return false, err
	}
	alive := signedIn(markup) && !extract.HasLoginForm(markup)
	if alive {
		err = m.syncCookies(ctx)
		if err != nil {
			return false, err
		}
	}
	return alive, nil
}

// signedIn reports whether a page only an authenticated session can see is displayed.
func signedIn(markup string) bool {
	title := strings.ToLower(extract.Title(markup))
	if strings.Contains(title, "my account") || strings.Contains(title, "checked out") {
		return true
	}
	return extract.HasLogoutControl(markup)
}

// syncCookies hands the browser's cookies to the request channel.
func (m *Manager) syncCookies(ctx context.Context) error {
	cookies, err := m.browser.Cookies(ctx)
	if err != nil {
		return err
	}
	return m.requests.SetCookies(transport.StorageState{Cookies: cookies}.CookieMap())
}

func (m *Manager) login(ctx context.Context) (bool, error) {
	err := m.browser.Navigate(ctx, m.baseURL+AccountPath, transport.Settle{Selector: extract.LoginUsername[0]})
	if err != nil {
		return false, err
	}
	markup, err := m.browser.HTML(ctx)
	if err != nil {
		return false, err
	}

	if extract.HasLoginForm(markup) {
		if m.credentials.empty() {
			return false, &ConfigError{Message: "library card barcode and pin are required to log in"}
		}
		markup, err = m.submitCredentials(ctx, markup)
		if err != nil {
			return false, err
		}
	}

	loginForm := extract.HasLoginForm(markup)
	if signedIn(markup) && !loginForm {
		err = m.persist(ctx)
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if banner := extract.LoginBanner(markup); banner != "" {
		m.tel.ReportWarning(report_session_login, "rejected", banner)
		return false, &AuthError{Message: banner}
	}
	if !loginForm && !extract.IsChallenge(markup) {
		// the form is gone and nothing went wrong, the account page just looks different
		err = m.persist(ctx)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	m.tel.ReportWarning(report_session_login, "no success signal after submitting credentials", extract.Title(markup))
	return false, nil
}

func (m *Manager) submitCredentials(ctx context.Context, markup string) (string, error) {
	username := extract.Match(markup, extract.LoginUsername)
	password := extract.Match(markup, extract.LoginPassword)

	err := m.browser.Fill(ctx, username, m.credentials.Barcode)
	if err != nil {
		return "", err
	}
	err = m.browser.Fill(ctx, password, m.credentials.PIN)
	if err != nil {
		return "", err
	}
	if remember := extract.Match(markup, extract.LoginRemember); remember != "" {
		err = m.browser.Check(ctx, remember)
		if err != nil {
			m.tel.ReportDebug("remember me", "err", err)
		}
	}

	if submit := extract.Match(markup, extract.LoginSubmit); submit != "" {
		err = m.browser.Click(ctx, submit)
	} else {
		err = m.browser.Press(ctx, password, "Enter")
	}
	if err != nil {
		return "", err
	}

	err = m.browser.WaitIdle(ctx, transport.Settle{Delay: transport.SettleDelay})
	if err != nil {
		return "", err
	}
	return m.browser.HTML(ctx)
}

// persist saves the authenticated session and hands it to the request channel.
func (m *Manager) persist(ctx context.Context) error {
	state, err := m.browser.StorageState(ctx)
	if err != nil {
		return err
	}
	cookies := state.CookieMap()
	err = m.requests.SetCookies(cookies)
	if err != nil {
		return err
	}
	err = m.store.Save(cookies, state)
	if err != nil {
		m.tel.ReportBroken(report_session_persist, err)
		return fmt.Errorf("save session: %w", err)
	}
	m.tel.ReportDebug("session saved", "cookies", len(cookies))
	return nil
}

// Recover re-establishes a session the catalog stopped accepting. It is attempted once per
// failed operation, an unsuccessful attempt is an *AuthError.
func (m *Manager) Recover(ctx context.Context) error {
	m.tel.ReportDebug("session went stale, logging in again")
	ok, err := m.EnsureSession(ctx, true)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		var configErr *ConfigError
		var authErr *AuthError
		if errors.As(err, &configErr) || errors.As(err, &authErr) {
			return err
		}
		return &AuthError{Message: "could not re-establish the session", Err: err}
	}
	if !ok {
		return &AuthError{Message: "session expired and logging in again did not succeed"}
	}
	return nil
}
