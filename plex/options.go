package plex

import (
	"net/http"
	"time"
)

const (
	// DefaultPageSize is the number of history entries requested per page
	DefaultPageSize uint32 = 100
	// DefaultAccountID scopes history to the server owner
	DefaultAccountID = "1"
	// DefaultTimeout applies to each request
	DefaultTimeout = 30 * time.Second
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	timeout    time.Duration
	httpClient *http.Client
	pageSize   uint32
	accountID  string
	rateLimit  float64
	burst      int
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:   DefaultTimeout,
		pageSize:  DefaultPageSize,
		accountID: DefaultAccountID,
		burst:     1,
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client. The timeout option is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithPageSize sets how many history entries are requested per page.
func WithPageSize(size uint32) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithAccountID sets the account history is scoped to.
func WithAccountID(id string) Option {
	return func(o *clientOptions) {
		if id != "" {
			o.accountID = id
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *clientOptions) {
		if perSecond >= 0 {
			o.rateLimit = perSecond
		}
		if burst > 0 {
			o.burst = burst
		}
	}
}
