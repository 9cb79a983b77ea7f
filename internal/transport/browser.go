package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoElement is returned when an interaction targets a selector that matches nothing.
var ErrNoElement = errors.New("no element matches selector")

// SettleDelay is how long a page is given to finish rendering when there is no selector to
// wait for, or when waiting for it timed out.
const SettleDelay = 3 * time.Second

// Settle describes when a navigation is considered complete.
type Settle struct {
	// Selector, when set, is waited for after load. Giving up on it is not an error, the page
	// is then given SettleDelay instead.
	Selector string
	// Delay is an additional fixed wait after load.
	Delay time.Duration
}

// Browser is the automation channel: a real browser session driven one page at a time.
//
// Implementations keep a single tab. Navigate skips the load when the tab is already at the
// target url.
type Browser interface {
	Navigate(ctx context.Context, url string, settle Settle) error
	Location(ctx context.Context) (string, error)
	// HTML returns the rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)

	Fill(ctx context.Context, selector, value string) error
	Check(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// Press sends a key (ex. "Enter") to the element matching `selector`.
	Press(ctx context.Context, selector, key string) error
	SelectOption(ctx context.Context, selector, value string) error
	// WaitIdle waits for navigation caused by an interaction to finish.
	WaitIdle(ctx context.Context, settle Settle) error

	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookies(ctx context.Context, cookies []Cookie) error
	StorageState(ctx context.Context) (StorageState, error)

	Close() error
}

// Cookie is a browser cookie as stored in a StorageState.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// NameValue is a single localStorage entry.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OriginState is the localStorage of one origin.
type OriginState struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

// StorageState is a snapshot of a browser session: its cookies and the localStorage of every
// origin it touched. It is sufficient to restore the session in a fresh headless browser.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

// CookieMap flattens the snapshot's cookies into the name -> value set the request channel uses.
func (s StorageState) CookieMap() map[string]string {
	out := make(map[string]string, len(s.Cookies))
	for _, c := range s.Cookies {
		out[c.Name] = c.Value
	}
	return out
}

func (s StorageState) Encode() ([]byte, error) {
	if s.Cookies == nil {
		s.Cookies = []Cookie{}
	}
	if s.Origins == nil {
		s.Origins = []OriginState{}
	}
	return json.MarshalIndent(s, "", "  ")
}

func DecodeStorageState(buff []byte) (StorageState, error) {
	var state StorageState
	err := json.Unmarshal(buff, &state)
	if err != nil {
		return StorageState{}, fmt.Errorf("decode browser state: %w", err)
	}
	return state, nil
}
