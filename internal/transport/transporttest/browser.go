// Package transporttest contains an in-memory automation channel. Pages are static html keyed
// by url, selectors are evaluated with goquery and interactions are routed to other pages.
package transporttest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/transport"
)

// Interaction is a click or a key press on the current page.
type Interaction struct {
	Kind     string // "click" or "press"
	URL      string
	Selector string
	Key      string
}

// Browser implements transport.Browser.
type Browser struct {
	// Pages maps a url to the html served for it. A url with a query string also matches an
	// entry registered without one.
	Pages map[string]string
	// PageCookies are set in the jar when the page is loaded.
	PageCookies map[string][]transport.Cookie
	// Interact decides where an interaction leads, "" stays on the current page. When nil, or
	// when it returns "", the static routes registered with Route are consulted.
	Interact func(b *Browser, in Interaction) (string, error)
	// NavigateErr is returned by every Navigate when set.
	NavigateErr error

	Jar          []transport.Cookie
	LocalStorage []transport.NameValue

	Current      string
	Navigations  []string
	Interactions []Interaction
	Filled       map[string]string
	Checked      map[string]bool
	Selected     map[string]string
	Closed       int

	routes map[string]string
}

func New() *Browser {
	return &Browser{
		Pages:       map[string]string{},
		PageCookies: map[string][]transport.Cookie{},
		Filled:      map[string]string{},
		Checked:     map[string]bool{},
		Selected:    map[string]string{},
		routes:      map[string]string{},
	}
}

// Route makes interacting with `selector` on `from` load `to`.
func (b *Browser) Route(from, selector, to string) {
	b.routes[from+" "+selector] = to
}

func stripQuery(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func (b *Browser) page() string {
	if html, ok := b.Pages[b.Current]; ok {
		return html
	}
	return b.Pages[stripQuery(b.Current)]
}

func (b *Browser) doc() *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.page()))
	if err != nil {
		panic(err)
	}
	return doc
}

func (b *Browser) load(target string) {
	b.Current = target
	b.Navigations = append(b.Navigations, target)
	b.Jar = mergeCookies(b.Jar, b.PageCookies[target])
	b.Jar = mergeCookies(b.Jar, b.PageCookies[stripQuery(target)])
}

func mergeCookies(jar, add []transport.Cookie) []transport.Cookie {
	for _, c := range add {
		replaced := false
		for i := range jar {
			if jar[i].Name == c.Name {
				jar[i] = c
				replaced = true
			}
		}
		if !replaced {
			jar = append(jar, c)
		}
	}
	return jar
}

func (b *Browser) Navigate(ctx context.Context, target string, settle transport.Settle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.NavigateErr != nil {
		return b.NavigateErr
	}
	if b.Current == target {
		return nil
	}
	b.load(target)
	return nil
}

func (b *Browser) Location(ctx context.Context) (string, error) {
	return b.Current, nil
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	return b.page(), nil
}

func (b *Browser) Exists(ctx context.Context, selector string) (bool, error) {
	return b.doc().Find(selector).Length() > 0, nil
}

func (b *Browser) require(selector string) error {
	if b.doc().Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", transport.ErrNoElement, selector)
	}
	return nil
}

func (b *Browser) Fill(ctx context.Context, selector, value string) error {
	if err := b.require(selector); err != nil {
		return err
	}
	b.Filled[selector] = value
	return nil
}

func (b *Browser) Check(ctx context.Context, selector string) error {
	if err := b.require(selector); err != nil {
		return err
	}
	b.Checked[selector] = true
	return nil
}

func (b *Browser) SelectOption(ctx context.Context, selector, value string) error {
	if err := b.require(selector); err != nil {
		return err
	}
	b.Selected[selector] = value
	return nil
}

func (b *Browser) interact(in Interaction) error {
	if err := b.require(in.Selector); err != nil {
		return err
	}
	b.Interactions = append(b.Interactions, in)

	var next string
	if b.Interact != nil {
		var err error
		next, err = b.Interact(b, in)
		if err != nil {
			return err
		}
	}
	if next == "" {
		next = b.routes[in.URL+" "+in.Selector]
	}
	if next != "" {
		b.load(next)
	}
	return nil
}

func (b *Browser) Click(ctx context.Context, selector string) error {
	return b.interact(Interaction{Kind: "click", URL: b.Current, Selector: selector})
}

func (b *Browser) Press(ctx context.Context, selector, key string) error {
	return b.interact(Interaction{Kind: "press", URL: b.Current, Selector: selector, Key: key})
}

func (b *Browser) WaitIdle(ctx context.Context, settle transport.Settle) error {
	return ctx.Err()
}

func (b *Browser) Cookies(ctx context.Context) ([]transport.Cookie, error) {
	return append([]transport.Cookie(nil), b.Jar...), nil
}

func (b *Browser) AddCookies(ctx context.Context, cookies []transport.Cookie) error {
	b.Jar = mergeCookies(b.Jar, cookies)
	return nil
}

func (b *Browser) StorageState(ctx context.Context) (transport.StorageState, error) {
	state := transport.StorageState{
		Cookies: append([]transport.Cookie{}, b.Jar...),
		Origins: []transport.OriginState{},
	}
	if len(b.LocalStorage) > 0 {
		origin := ""
		if parsed, err := url.Parse(b.Current); err == nil {
			origin = parsed.Scheme + "://" + parsed.Host
		}
		state.Origins = append(state.Origins, transport.OriginState{
			Origin:       origin,
			LocalStorage: append([]transport.NameValue{}, b.LocalStorage...),
		})
	}
	return state, nil
}

func (b *Browser) Close() error {
	b.Closed++
	return nil
}

var _ transport.Browser = (*Browser)(nil)
