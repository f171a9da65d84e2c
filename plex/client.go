package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	headerToken          = "X-Plex-Token"
	headerContainerStart = "X-Plex-Container-Start"
	headerContainerSize  = "X-Plex-Container-Size"

	// maxErrorBody bounds how much of an error response is kept on APIError
	maxErrorBody = 512
)

// Client talks to a Plex Media Server. It is safe to share between
// goroutines, but a WatchHistory built on it issues one request at a time.
type Client struct {
	baseURL    string
	token      string
	accountID  string
	pageSize   uint32
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a new Plex client
func NewClient(baseURL, token string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: plex URL is required", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid plex URL %q: %v", ErrInvalidConfig, baseURL, err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: plex token is required", ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	client := &Client{
		baseURL:    baseURL,
		token:      token,
		accountID:  o.accountID,
		pageSize:   o.pageSize,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "plex").Logger(),
	}
	if o.rateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(o.rateLimit), o.burst)
	}

	return client, nil
}

// BaseURL returns the server URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TestConnection checks the server is reachable and accepts the token
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.FetchLibrarySections(ctx)
	return err
}

// doRequest performs an authenticated GET and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values, header http.Header) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: err}
		}
	}

	requestURL := c.baseURL + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set(headerToken, c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Trace().Str("endpoint", endpoint).Str("query", query.Encode()).Msg("Making Plex API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return body, nil
}

// getContainer issues a request and unwraps its MediaContainer into T
func getContainer[T any](ctx context.Context, c *Client, endpoint string, query url.Values, header http.Header) (T, error) {
	body, err := c.doRequest(ctx, endpoint, query, header)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeEnvelope[T](endpoint, body)
}
