// Package upstream wraps outbound HTTP calls to collaborator services
// (mail provider, runtime manager) in a circuit breaker so that a failing
// collaborator is skipped quickly for the rest of a batch.
package upstream

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned without making a request while the breaker is open.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError reports a response status the breaker counts as a failure.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// Settings configures a Client.
type Settings struct {
	// Name identifies the breaker in logs.
	Name string
	// Timeout bounds each request.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	UserAgent   string
	Logger      *slog.Logger
}

// Client is an http.Client guarded by a circuit breaker. It never retries.
type Client struct {
	name      string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// New creates a Client with its own http.Client.
func New(s Settings) *Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWithHTTPClient(&http.Client{Timeout: timeout}, s)
}

// NewWithHTTPClient creates a Client around a caller-provided http.Client.
func NewWithHTTPClient(httpClient *http.Client, s Settings) *Client {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		name:      s.Name,
		http:      httpClient,
		breaker:   cb,
		userAgent: s.UserAgent,
	}
}

// Do sends the request through the breaker. A 5xx or 429 response is closed
// and returned as a *StatusError; any other response is returned as-is and
// the caller must close its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return nil, &StatusError{Code: r.StatusCode}
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	return resp, nil
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
