package gateway

import (
	"net/http"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// countingTransport paces outgoing requests and counts every call that
// actually leaves the process. The count feeds the api_usage section of the
// result metadata
type countingTransport struct {
	base  http.RoundTripper
	pacer *rate.Limiter
	calls atomic.Int64
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.pacer != nil {
		if err := t.pacer.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	t.calls.Add(1)
	return t.base.RoundTrip(req)
}

func (t *countingTransport) count() int {
	return int(t.calls.Load())
}
