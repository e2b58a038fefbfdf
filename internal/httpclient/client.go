// Package httpclient provides the HTTP client used to fetch remote menu documents
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "menu-importer/1.0"

	// AcceptHeader prefers JSON:API documents but accepts plain JSON
	AcceptHeader = "application/vnd.api+json, application/json"
)

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

// BreakerSettings configures the optional circuit breaker wrapped around requests
type BreakerSettings struct {
	// Name identifies the breaker in logs
	Name string

	// MaxRequests is the number of requests allowed through while half-open
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts are cleared
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker once reached
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings returns the breaker settings used when none are configured
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                name,
		MaxRequests:         1,
		Interval:            5 * time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 3,
	}
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithCircuitBreaker routes every request through a circuit breaker.
// Transport failures and 5xx responses count as failures; 4xx responses do not.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(c *DefaultClient) {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String())
			},
			IsSuccessful: isBreakerSuccess,
		})
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *DefaultClient) {
		c.userAgent = userAgent
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	breaker   *gobreaker.CircuitBreaker
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:   timeout,
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	if c.breaker == nil {
		return c.get(ctx, url)
	}

	body, err := c.breaker.Execute(func() (any, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker rejected request to %s: %w", url, err)
		}
		return nil, err
	}
	return body.([]byte), nil
}

func (c *DefaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", AcceptHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Any 2xx is a usable document; the decoder rejects bodies it cannot read
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return body, nil
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < http.StatusInternalServerError
	}
	return false
}
