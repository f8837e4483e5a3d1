// Package httpc builds HTTP clients with timeouts and connection
// pooling already set, so callers never reach for http.DefaultClient.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout is the overall request timeout used when a caller
// passes a non-positive value to NewClient.
const DefaultTimeout = 30 * time.Second

const (
	dialTimeout     = 10 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
	tlsTimeout      = 10 * time.Second
)

// NewClient creates an HTTP client with the given overall timeout and a
// pooled transport.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAlive,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ExpectContinueTimeout: time.Second,
	}
}
