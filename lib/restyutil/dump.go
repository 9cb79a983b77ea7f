// Package restyutil dumps the http exchanges of a resty client for debugging.
package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DumpExchanges writes every completed request and its response to `output`, named by a
// running counter and the request method. Session headers are redacted. A nil output is a
// no-op.
func DumpExchanges(client *resty.Client, output Output) {
	if output == nil {
		return
	}
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		if res.Request.RawRequest == nil || res.RawResponse == nil {
			return nil
		}
		id := atomic.AddUint64(&counter, 1)
		output.Write(fmt.Sprintf("%04d-%s.txt", id, res.Request.Method), formatExchange(res))
		return nil
	})
}
