package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/assert"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/telemetry"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	report_chrome_launch   = "chrome.launch"
	report_chrome_navigate = "chrome.navigate"
	report_chrome_settle   = "chrome.settle"
	report_chrome_close    = "chrome.close"

	report_chrome_storage_state = "chrome.storage-state"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// how long a settle selector is waited for before giving up on it
const selectorWait = 10 * time.Second

// hides the most common automation tell
const hideWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

type ChromeOptions struct {
	// Headless runs without a visible window, which is how stored sessions are replayed.
	Headless bool
	// Timeout bounds every single browser operation, 0 means 60 seconds.
	Timeout time.Duration
	// State, when set, is restored into the fresh browser before the first navigation.
	State *StorageState
	// ExecPath overrides the chrome binary, empty means auto-detect.
	ExecPath  string
	Telemetry telemetry.API
}

// Chrome is the chromedp implementation of Browser. It owns one browser process with a single
// tab that is reused for every navigation.
type Chrome struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	tel         telemetry.API
}

var _ Browser = (*Chrome)(nil)

// LaunchChrome starts a browser and opens its tab. The browser outlives `ctx`, it is only
// released by Close.
func LaunchChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	assert.NotNil(opts.Telemetry)

	tel := telemetry.NewScopedAPI("transport", opts.Telemetry)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(UserAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	c := &Chrome{
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     timeout,
		tel:         tel,
	}

	init := []chromedp.Action{
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		addInitScript(hideWebdriverScript),
	}
	if opts.State != nil {
		init = append(init, restoreCookies(opts.State.Cookies))
		if script := restoreLocalStorageScript(opts.State.Origins); script != "" {
			init = append(init, addInitScript(script))
		}
	}

	err := c.start(ctx)
	if err == nil {
		err = c.run(ctx, init...)
	}
	if err != nil {
		c.tel.ReportBroken(report_chrome_launch, err)
		_ = c.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return c, nil
}

// start allocates the browser process. chromedp ties the process to the context of the first
// Run, so that Run gets the tab itself and the launch deadline is enforced from the outside.
func (c *Chrome) start(ctx context.Context) error {
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(c.tab)
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case err := <-started:
		return err
	case <-timer.C:
		return fmt.Errorf("browser did not start within %s", c.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func addInitScript(source string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(source).Do(ctx)
		return err
	})
}

func restoreCookies(cookies []Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(cookies) == 0 {
			return nil
		}
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			param := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if c.SameSite != "" {
				param.SameSite = network.CookieSameSite(c.SameSite)
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param.Expires = &expires
			}
			params = append(params, param)
		}
		return storage.SetCookies(params).Do(ctx)
	})
}

// restoreLocalStorageScript builds an init script that seeds the stored localStorage of the
// origin being loaded, without overwriting keys the page already has.
func restoreLocalStorageScript(origins []OriginState) string {
	data := map[string]map[string]string{}
	for _, o := range origins {
		if len(o.LocalStorage) == 0 {
			continue
		}
		entries := map[string]string{}
		for _, kv := range o.LocalStorage {
			entries[kv.Name] = kv.Value
		}
		data[o.Origin] = entries
	}
	if len(data) == 0 {
		return ""
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`(() => {
	const entries = (%s)[window.location.origin];
	if (!entries) return;
	for (const [k, v] of Object.entries(entries)) {
		if (window.localStorage.getItem(k) === null) window.localStorage.setItem(k, v);
	}
})();`, encoded)
}

// run executes actions on the already started tab, bounded by both `ctx` and the per-operation
// timeout. Cancelling a context derived from the tab only aborts the actions.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.tab, c.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func sameURL(a, b string) bool {
	pa, err := url.Parse(a)
	if err != nil {
		return a == b
	}
	pb, err := url.Parse(b)
	if err != nil {
		return a == b
	}
	pa.Fragment = ""
	pb.Fragment = ""
	return strings.TrimSuffix(pa.String(), "/") == strings.TrimSuffix(pb.String(), "/")
}

func (c *Chrome) Navigate(ctx context.Context, target string, settle Settle) error {
	current, err := c.Location(ctx)
	if err == nil && sameURL(current, target) {
		return nil
	}

	c.tel.ReportDebug(report_chrome_navigate, target)
	err = c.run(ctx, chromedp.Navigate(target))
	if err != nil {
		c.tel.ReportBroken(report_chrome_navigate, err, target)
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	return c.WaitIdle(ctx, settle)
}

func (c *Chrome) WaitIdle(ctx context.Context, settle Settle) error {
	err := c.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
	if err != nil {
		return err
	}

	if settle.Selector != "" {
		waitCtx, cancel := context.WithTimeout(ctx, selectorWait)
		err = c.run(waitCtx, chromedp.WaitVisible(settle.Selector, chromedp.ByQuery))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.tel.ReportDebug(report_chrome_settle, "selector did not appear, falling back to delay", settle.Selector)
			err = sleep(ctx, SettleDelay)
			if err != nil {
				return err
			}
		}
	}
	if settle.Delay > 0 {
		return sleep(ctx, settle.Delay)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var location string
	err := c.run(ctx, chromedp.Location(&location))
	return location, err
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var markup string
	err := c.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (c *Chrome) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (c *Chrome) require(ctx context.Context, selector string) error {
	ok, err := c.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return nil
}

func (c *Chrome) Fill(ctx context.Context, selector, value string) error {
	if err := c.require(ctx, selector); err != nil {
		return err
	}
	return c.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// evalOnElement runs `body` with `el` bound to the first element matching selector.
func (c *Chrome) evalOnElement(ctx context.Context, selector, body string) error {
	encoded, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); if (!el) return false; %s; return true; })()`, encoded, body)
	var found bool
	err = c.run(ctx, chromedp.Evaluate(script, &found))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return nil
}

func (c *Chrome) Check(ctx context.Context, selector string) error {
	return c.evalOnElement(ctx, selector, `if (!el.checked) el.click()`)
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	if err := c.require(ctx, selector); err != nil {
		return err
	}
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

var keys = map[string]string{
	"Enter":  kb.Enter,
	"Tab":    kb.Tab,
	"Escape": kb.Escape,
}

func (c *Chrome) Press(ctx context.Context, selector, key string) error {
	if err := c.require(ctx, selector); err != nil {
		return err
	}
	if mapped, ok := keys[key]; ok {
		key = mapped
	}
	return c.run(ctx, chromedp.SendKeys(selector, key, chromedp.ByQuery))
}

func (c *Chrome) SelectOption(ctx context.Context, selector, value string) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.evalOnElement(ctx, selector, fmt.Sprintf(
		`el.value = %s; el.dispatchEvent(new Event('change', {bubbles: true}))`,
		encoded,
	))
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		out = make([]Cookie, 0, len(cookies))
		for _, ck := range cookies {
			out = append(out, Cookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ck.Domain,
				Path:     ck.Path,
				Expires:  ck.Expires,
				HTTPOnly: ck.HTTPOnly,
				Secure:   ck.Secure,
				SameSite: ck.SameSite.String(),
			})
		}
		return nil
	}))
	return out, err
}

func (c *Chrome) AddCookies(ctx context.Context, cookies []Cookie) error {
	return c.run(ctx, restoreCookies(cookies))
}

const localStorageScript = `(() => {
	const out = [];
	for (let i = 0; i < window.localStorage.length; i++) {
		const k = window.localStorage.key(i);
		out.push({name: k, value: window.localStorage.getItem(k)});
	}
	return {origin: window.location.origin, localStorage: out};
})()`

// StorageState captures the cookies and the localStorage of the current origin.
func (c *Chrome) StorageState(ctx context.Context) (StorageState, error) {
	cookies, err := c.Cookies(ctx)
	if err != nil {
		return StorageState{}, err
	}
	state := StorageState{Cookies: cookies, Origins: []OriginState{}}

	var origin OriginState
	err = c.run(ctx, chromedp.Evaluate(localStorageScript, &origin))
	if err != nil {
		// about:blank and friends have no storage
		c.tel.ReportDebug(report_chrome_storage_state, "no local storage", err)
		return state, nil
	}
	if origin.Origin != "" && origin.Origin != "null" {
		state.Origins = append(state.Origins, origin)
	}
	return state, nil
}

// Close shuts down the tab and the browser process. It is safe to call more than once.
func (c *Chrome) Close() error {
	if c.cancelTab == nil {
		return nil
	}
	err := chromedp.Cancel(c.tab)
	c.cancelTab()
	c.cancelAlloc()
	c.cancelTab = nil
	c.cancelAlloc = nil
	if err != nil && err != context.Canceled {
		c.tel.ReportBroken(report_chrome_close, err)
		return err
	}
	return nil
}
