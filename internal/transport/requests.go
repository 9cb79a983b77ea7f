package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/assert"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/components/telemetry"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/restyutil"
	libtelemetry "github.com/markuskreitzer/hmcpl-library-cli/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_requests_get_json  = "requests.get-json"
	report_requests_post_form = "requests.post-form"
)

// UserAgent is sent by both channels so the catalog sees one consistent client.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNotJSON is returned when the catalog answered a json endpoint with something else,
// typically the login page of an expired session or an anti-automation challenge. The body is
// kept on the *NotJSONError wrapping it.
var ErrNotJSON = errors.New("response is not json")

// NotJSONError carries the body of a response that was expected to be json.
type NotJSONError struct {
	URL  string
	Body []byte
}

func (e *NotJSONError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, ErrNotJSON)
}

func (e *NotJSONError) Unwrap() error {
	return ErrNotJSON
}

// StatusError is returned when the catalog answered with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// RequestChannel is the lightweight json channel. *Requests implements it.
type RequestChannel interface {
	GetJSON(ctx context.Context, path string, params map[string]string) ([]byte, error)
	PostForm(ctx context.Context, path string, form map[string]string) ([]byte, error)
	SetCookies(cookies map[string]string) error
	Cookies() map[string]string
	Close()
}

var _ RequestChannel = (*Requests)(nil)

type RequestsOptions struct {
	BaseURL string
	// Timeout bounds every request, 0 means 60 seconds.
	Timeout time.Duration
	// Cookies seed the jar, usually the persisted cookie set of a previous session.
	Cookies   map[string]string
	Telemetry telemetry.API

	// Dump receives every http exchange when set.
	Dump restyutil.Output
}

// Requests is the lightweight request channel. It sends the session's cookies along with
// browser-like headers and only ever expects json back.
type Requests struct {
	base *url.URL
	http *resty.Client
	tel  telemetry.API
}

func NewRequests(opts RequestsOptions) (*Requests, error) {
	assert.NotNil(opts.Telemetry)
	assert.NotEmptyStr(opts.BaseURL)

	tel := telemetry.NewScopedAPI("transport", opts.Telemetry)

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(base.String())
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeaders(map[string]string{
		"user-agent":       UserAgent,
		"accept":           "application/json, text/javascript, */*; q=0.01",
		"accept-language":  "en-US,en;q=0.9",
		"x-requested-with": "XMLHttpRequest",
	})
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	libtelemetry.TraceResty(httpClient, "hmcpl.transport.Requests")
	restyutil.DumpExchanges(httpClient, opts.Dump)

	r := &Requests{base: base, http: httpClient, tel: tel}
	err = r.SetCookies(opts.Cookies)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SetCookies replaces the channel's cookie set.
func (r *Requests) SetCookies(cookies map[string]string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	list := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(r.base, list)
	r.http.SetCookieJar(jar)
	return nil
}

// Cookies returns the cookies the channel would currently send to the catalog.
func (r *Requests) Cookies() map[string]string {
	out := map[string]string{}
	jar := r.http.GetClient().Jar
	if jar == nil {
		return out
	}
	for _, c := range jar.Cookies(r.base) {
		out[c.Name] = c.Value
	}
	return out
}

// GetJSON fetches `path` with the given query parameters and returns the raw json body.
func (r *Requests) GetJSON(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	res, err := r.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		r.tel.ReportBroken(report_requests_get_json, fmt.Errorf("fetch: %w", err), path)
		return nil, err
	}
	return r.checkJSON(res)
}

// PostForm posts a url-encoded form to `path` and returns the raw json body.
func (r *Requests) PostForm(ctx context.Context, path string, form map[string]string) ([]byte, error) {
	res, err := r.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(path)
	if err != nil {
		r.tel.ReportBroken(report_requests_post_form, fmt.Errorf("fetch: %w", err), path)
		return nil, err
	}
	return r.checkJSON(res)
}

func (r *Requests) checkJSON(res *resty.Response) ([]byte, error) {
	target := res.Request.URL
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &StatusError{URL: target, Code: res.StatusCode()}
	}
	body := res.Body()
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, &NotJSONError{URL: target, Body: body}
	}
	return body, nil
}

// Close releases idle connections. The channel must not be used afterwards.
func (r *Requests) Close() {
	r.http.GetClient().CloseIdleConnections()
}
