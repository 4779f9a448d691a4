package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
)

// Request is a buffered HTTP request. Body is resent on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends requests with retries, backoff and an optional circuit breaker.
// Zero value is not usable; use New.
type Client struct {
	httpClient  *http.Client
	clock       clockwork.Clock
	timeout     time.Duration
	maxRetries  int
	backoff     BackoffStrategy
	breaker     *CircuitBreaker
	userAgent   string
	maxBodySize int64
	onAttempt   AttemptHook
	limiter     Limiter
}

// New creates a client with a pooled default HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		clock:       clockwork.NewRealClock(),
		timeout:     15 * time.Second,
		maxRetries:  2,
		backoff:     DefaultBackoffStrategy(),
		userAgent:   "imoji-go/1.0",
		maxBodySize: 32 << 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Do sends req, retrying temporary failures. Non-2xx responses end as a
// *StatusError; 4xx responses other than 408, 425 and 429 are not retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(c.backoff.NextInterval(attempt)):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		start := c.clock.Now()
		resp, err := c.attempt(ctx, req)
		if c.onAttempt != nil {
			a := Attempt{
				Method:   req.Method,
				URL:      req.URL,
				Attempt:  attempt + 1,
				Duration: c.clock.Since(start),
				Err:      err,
			}
			if resp != nil {
				a.StatusCode = resp.StatusCode
			} else {
				a.StatusCode = StatusCode(err)
			}
			c.onAttempt(a)
		}

		status := StatusCode(err)
		if c.breaker != nil {
			// Client errors say nothing about upstream health.
			if err == nil || isPermanentStatus(status) {
				c.breaker.RecordSuccess()
			} else if ctx.Err() == nil {
				c.breaker.RecordFailure()
			}
		}

		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		if isPermanentStatus(status) || errors.Is(err, ErrResponseTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRequestFailed, c.maxRetries+1, lastErr)
}

func validate(req Request) error {
	if req.Method == "" {
		return fmt.Errorf("%w: method is required", ErrInvalidRequest)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidRequest)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidRequest)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTemporaryFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > 64<<10 {
			data = data[:64<<10]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, c.maxBodySize)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// isPermanentStatus reports whether retrying a status cannot help.
// 408, 425 and 429 are transient despite being 4xx.
func isPermanentStatus(statusCode int) bool {
	if statusCode < 400 || statusCode >= 500 {
		return false
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
