package pool

import (
	"context"

	bphttp "github.com/ligustah/batchproxy/internal/http"
)

// Transport issues requests through one proxy. Implementations must return
// from Get as soon as the response headers arrive.
type Transport interface {
	Probe(ctx context.Context, method, url string) error
	Head(ctx context.Context, url string) (*bphttp.FileInfo, error)
	Get(ctx context.Context, url string) (*bphttp.Response, error)
}

// TransportFactory builds the transport bound to ep. Every call must return
// a transport with its own connections.
type TransportFactory func(ep *Endpoint, userAgent string) (Transport, error)

// DefaultTransport returns an internal/http Client routed through ep.
func DefaultTransport(ep *Endpoint, userAgent string) (Transport, error) {
	opts := bphttp.DefaultOptions()
	opts.Proxy = ep.ProxyURL()
	opts.UserAgent = userAgent
	return bphttp.NewClient(opts), nil
}
