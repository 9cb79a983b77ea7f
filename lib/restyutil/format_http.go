package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

var redactedHeaders = map[string]bool{
	"Cookie":        true,
	"Set-Cookie":    true,
	"Authorization": true,
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if redactedHeaders[http.CanonicalHeaderKey(k)] {
				v = "<redacted>"
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	if body == nil {
		return ""
	}
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(contents)
}

// formatExchange renders a request and its response as plain text, request first:
//
//	>>> METHOD URL
//	headers
//
//	body
//
//	<<< STATUS FINAL-URL
//	headers
//
//	body
func formatExchange(res *resty.Response) string {
	req := res.Request.RawRequest
	target := req.URL.String()
	final := target
	if redirected, err := res.RawResponse.Location(); err == nil {
		final = redirected.String()
	}

	var out strings.Builder
	fmt.Fprintf(&out, ">>> %s %s\n", req.Method, target)
	writeHeaders(&out, req.Header)
	out.WriteString("\n")
	out.WriteString(requestBody(req))
	out.WriteString("\n\n")

	fmt.Fprintf(&out, "<<< %d %s\n", res.StatusCode(), final)
	writeHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(res.String())
	out.WriteString("\n")
	return out.String()
}
