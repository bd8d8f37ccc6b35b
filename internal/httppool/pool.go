// Package httppool owns the single process-wide HTTP connection pool
// mentioned in spec.md §9 as one of two singletons by contract (the other
// is the response cache manager in internal/resource). The MCP HTTP
// transport takes its *http.Client from here rather than constructing its
// own, so its connections are pooled and reused across the whole process.
// The go-openai engine adapter builds its own *http.Client and does not use
// this pool.
//
// Grounded on the teacher's golang.org/x/net dependency (already present for
// HTTP/2 transport support) and spec.md §9's explicit singleton note.
package httppool

import (
	"net"
	"net/http"
	"sync"
	"time"

	_ "golang.org/x/net/http2" // transitively enables h2 transport negotiation
)

var (
	once   sync.Once
	client *http.Client
)

// Client returns the process-wide *http.Client, constructing it on first
// use and reusing it for the lifetime of the process. Never construct a
// second pool within one process — every caller shares this one, matching
// spec.md §9's singleton contract.
func Client() *http.Client {
	once.Do(func() {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		}
	})
	return client
}

// Reset tears down and recreates the pool. Intended for tests that need
// isolation between cases exercising transport-level behavior; production
// code should never call this, matching spec.md §9's "initialized at first
// use and torn down on process exit" lifecycle.
func Reset() {
	once = sync.Once{}
	client = nil
}
