package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Attempt describes one HTTP round trip made by Client.Do.
type Attempt struct {
	Method     string
	URL        string
	StatusCode int
	Attempt    int
	Duration   time.Duration
	Err        error
}

// AttemptHook is called after each attempt.
type AttemptHook func(a Attempt)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-attempt timeout. Default is 15 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxRetries sets the maximum number of retries after the first attempt.
// Default is 2. Set to 0 to disable retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the backoff strategy for retries.
func WithBackoff(strategy BackoffStrategy) Option {
	return func(c *Client) {
		if strategy != nil {
			c.backoff = strategy
		}
	}
}

// WithCircuitBreaker enables circuit breaker protection for the upstream.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithClock sets the clock used to wait between retries.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize caps how much of a response body is read. Default 32 MiB.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// Limiter paces attempts. *ratelimiter.Bucket satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// WithRateLimiter makes every attempt, retries included, wait for l first.
func WithRateLimiter(l Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithOnAttempt registers a hook invoked after every attempt.
func WithOnAttempt(hook AttemptHook) Option {
	return func(c *Client) {
		c.onAttempt = hook
	}
}
