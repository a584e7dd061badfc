// Package transport performs single provider HTTP attempts with a per-attempt
// deadline and classifies how they ended.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/af-corp/aireader-gateway/internal/config"
)

const defaultMaxResponseBytes = 32 << 20

var (
	// ErrTimeout means the attempt deadline passed before a full response arrived.
	ErrTimeout = errors.New("transport: attempt timed out")
	// ErrResponseTooLarge means the body exceeded the configured cap.
	ErrResponseTooLarge = errors.New("transport: response body too large")
)

// NetworkError wraps connection-level failures: refused, reset, DNS.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "transport: network error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// Response is a fully read provider response. Non-2xx statuses are
// returned here, not as errors.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends attempts over a pooled http.Client.
type Client struct {
	http     *http.Client
	maxBytes int64
}

// NewClient builds a client from the provider settings. The http.Client has
// no overall timeout; every attempt carries its own deadline.
func NewClient(cfg config.ProviderConfig) *Client {
	idle := cfg.MaxIdleConns
	if idle <= 0 {
		idle = 4
	}
	idleTimeout := cfg.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = 90 * time.Second
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        idle,
				MaxIdleConnsPerHost: idle,
				IdleConnTimeout:     idleTimeout,
				ForceAttemptHTTP2:   true,
			},
		},
		maxBytes: maxBytes,
	}
}

// Do sends req with a deadline of timeout from now and reads the whole body.
// Errors are ErrTimeout, *NetworkError, ErrResponseTooLarge, or ctx.Err()
// when the caller's own context ended first.
func (c *Client) Do(ctx context.Context, req *http.Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(attemptCtx))
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBytes)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func classify(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &NetworkError{Err: err}
}
