// Package transport builds the HTTP client a bridge client posts through.
//
// net/http already keeps a pool of keep-alive connections per host; this
// package sizes that pool so concurrent callers sharing one Client reuse up to
// PoolSize connections instead of dialing for every request:
//
//	goroutine-1 ──POST──┐
//	goroutine-2 ──POST──┼──→ idle pool (≤ PoolSize per host) ──→ Server
//	goroutine-3 ──POST──┘
//
// No overall request timeout is set: callers bound a call through its context.
// Redirects are never followed; a 3xx reply is returned to the caller as is.
package transport

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultPoolSize    = 8
	DefaultIdleTimeout = 90 * time.Second
	DefaultDialTimeout = 10 * time.Second
)

type Options struct {
	PoolSize    int           // max idle connections kept per server
	MaxConns    int           // max connections per server, 0 for no limit
	IdleTimeout time.Duration // idle connections are closed after this
	DialTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	return o
}

// NoRedirect is an http.Client CheckRedirect that stops at the first reply.
func NoRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// NewHTTPClient returns a client with its own connection pool.
func NewHTTPClient(opts Options) *http.Client {
	opts = opts.withDefaults()
	dialer := &net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		CheckRedirect: NoRedirect,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConns:        opts.PoolSize * 4,
			MaxIdleConnsPerHost: opts.PoolSize,
			MaxConnsPerHost:     opts.MaxConns,
			IdleConnTimeout:     opts.IdleTimeout,
			ForceAttemptHTTP2:   true,
		},
	}
}
