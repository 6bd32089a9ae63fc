// Package http builds outbound HTTP clients with consistent transport settings.
package http

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 10 * time.Second

	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultExpectContinueTimeout = 1 * time.Second
)

// ClientConfig configures an HTTP client. Zero values take the defaults above.
type ClientConfig struct {
	Timeout               time.Duration
	MaxIdleConnsPerHost   int
	ResponseHeaderTimeout time.Duration
	// Transport replaces the generated transport, mainly for tests.
	Transport http.RoundTripper
}

// NewClient creates an HTTP client. A nil cfg uses all defaults.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	if cfg.Transport != nil {
		return &http.Client{Timeout: timeout, Transport: cfg.Transport}
	}

	perHost := cfg.MaxIdleConnsPerHost
	if perHost == 0 {
		perHost = DefaultMaxIdleConnsPerHost
	}

	headerTimeout := cfg.ResponseHeaderTimeout
	if headerTimeout == 0 {
		headerTimeout = timeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: DefaultExpectContinueTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
