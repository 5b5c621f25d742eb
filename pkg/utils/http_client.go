package utils

import (
	"net"
	"net/http"
	"time"
)

// Outbound calls (price feed, notify function) are small JSON requests to a
// handful of hosts, so the pool stays modest and every phase has a deadline.
const (
	defaultClientTimeout         = 2 * time.Second
	defaultResponseHeaderTimeout = 1 * time.Second
	defaultDialTimeout           = 500 * time.Millisecond
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxConnsPerHost       = 32
)

type clientConfig struct {
	timeout               time.Duration
	responseHeaderTimeout time.Duration
}

type ClientOption func(*clientConfig)

// WithClientTimeout caps the whole request including reading the body.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

func WithResponseHeaderTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.responseHeaderTimeout = d }
}

// NewHTTPClient builds a client whose zero or negative timeouts fall back to
// defaults, so no caller ends up with an unbounded request.
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout <= 0 {
		cfg.timeout = defaultClientTimeout
	}
	if cfg.responseHeaderTimeout <= 0 || cfg.responseHeaderTimeout > cfg.timeout {
		cfg.responseHeaderTimeout = min(defaultResponseHeaderTimeout, cfg.timeout)
	}

	return &http.Client{
		Timeout: cfg.timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			MaxIdleConnsPerHost:   defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: cfg.responseHeaderTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
