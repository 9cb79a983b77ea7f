package transport

import (
	"context"
)

// LaunchFunc starts a Browser.
type LaunchFunc func(ctx context.Context) (Browser, error)

// LazyBrowser is a Browser that is only launched the first time it is used. Operations that
// never touch the automation channel therefore never start a browser.
//
// Like the rest of the client it is not safe for concurrent use.
type LazyBrowser struct {
	launch LaunchFunc
	inner  Browser
}

var _ Browser = (*LazyBrowser)(nil)

func NewLazyBrowser(launch LaunchFunc) *LazyBrowser {
	return &LazyBrowser{launch: launch}
}

// Launched reports whether the underlying browser is currently running.
func (l *LazyBrowser) Launched() bool {
	return l.inner != nil
}

func (l *LazyBrowser) get(ctx context.Context) (Browser, error) {
	if l.inner != nil {
		return l.inner, nil
	}
	inner, err := l.launch(ctx)
	if err != nil {
		return nil, err
	}
	l.inner = inner
	return inner, nil
}

func (l *LazyBrowser) Navigate(ctx context.Context, url string, settle Settle) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.Navigate(ctx, url, settle)
}

func (l *LazyBrowser) Location(ctx context.Context) (string, error) {
	b, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return b.Location(ctx)
}

func (l *LazyBrowser) HTML(ctx context.Context) (string, error) {
	b, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return b.HTML(ctx)
}

func (l *LazyBrowser) Exists(ctx context.Context, selector string) (bool, error) {
	b, err := l.get(ctx)
	if err != nil {
		return false, err
	}
	return b.Exists(ctx, selector)
}

func (l *LazyBrowser) Fill(ctx context.Context, selector, value string) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.Fill(ctx, selector, value)
}

func (l *LazyBrowser) Check(ctx context.Context, selector string) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.Check(ctx, selector)
}

func (l *LazyBrowser) Click(ctx context.Context, selector string) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.Click(ctx, selector)
}

func (l *LazyBrowser) Press(ctx context.Context, selector, key string) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.Press(ctx, selector, key)
}

func (l *LazyBrowser) SelectOption(ctx context.Context, selector, value string) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.SelectOption(ctx, selector, value)
}

func (l *LazyBrowser) WaitIdle(ctx context.Context, settle Settle) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.WaitIdle(ctx, settle)
}

func (l *LazyBrowser) Cookies(ctx context.Context) ([]Cookie, error) {
	b, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Cookies(ctx)
}

func (l *LazyBrowser) AddCookies(ctx context.Context, cookies []Cookie) error {
	b, err := l.get(ctx)
	if err != nil {
		return err
	}
	return b.AddCookies(ctx, cookies)
}

func (l *LazyBrowser) StorageState(ctx context.Context) (StorageState, error) {
	b, err := l.get(ctx)
	if err != nil {
		return StorageState{}, err
	}
	return b.StorageState(ctx)
}

// Close shuts the browser down if it was launched. It is idempotent, and a closed LazyBrowser
// launches a fresh browser when used again.
func (l *LazyBrowser) Close() error {
	if l.inner == nil {
		return nil
	}
	err := l.inner.Close()
	l.inner = nil
	return err
}
