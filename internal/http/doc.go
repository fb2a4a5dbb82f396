// Package http provides an HTTP client bound to one forward proxy.
//
// Every Client owns its own transport, so two proxies never share a
// connection pool. The client sends a fixed User-Agent with every request
// and never retries: a failed request is reported to the caller as is.
//
// # Operations
//
//   - Probe: any-method request used for proxy health checks. Any response
//     counts as success.
//   - Head: file metadata, including the declared size (-1 when unknown).
//   - Get: returns after the response headers, exposing the body as a stream.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Proxy:     proxyURL,
//	    UserAgent: http.DefaultUserAgent,
//	})
//	resp, err := client.Get(ctx, "https://example.com/file.bin")
package http
