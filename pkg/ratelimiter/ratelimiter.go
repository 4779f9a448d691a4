package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config defines the token bucket.
type Config struct {
	Capacity       int           // burst size
	RefillRate     int           // tokens added per interval
	RefillInterval time.Duration // how often tokens are added
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// PerSecond returns a Config that allows rate requests per second with the
// given burst. A burst below rate is raised to rate.
func PerSecond(rate, burst int) Config {
	return Config{Capacity: max(rate, burst), RefillRate: rate, RefillInterval: time.Second}
}

// Result describes the bucket after a take.
type Result struct {
	Limit     int
	Remaining int // negative when the take was refused
	ResetAt   time.Time
}

func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long after now the next refill happens, or 0 for
// an allowed take.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithClock sets the time source. Default is the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(b *Bucket) {
		if c != nil {
			b.clock = c
		}
	}
}

// Bucket is a token bucket safe for concurrent use.
type Bucket struct {
	cfg   Config
	clock clockwork.Clock

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewBucket creates a full bucket.
func NewBucket(cfg Config, opts ...Option) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Bucket{cfg: cfg, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(b)
	}
	b.tokens = cfg.Capacity
	b.lastRefill = b.clock.Now()
	return b, nil
}

// Allow takes one token if available.
func (b *Bucket) Allow() Result {
	res, _ := b.AllowN(1)
	return res
}

// AllowN takes n tokens if all of them are available. A refused take leaves
// the bucket unchanged.
func (b *Bucket) AllowN(n int) (Result, error) {
	if n <= 0 || n > b.cfg.Capacity {
		return Result{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidTokenCount, n, b.cfg.Capacity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.clock.Now())
	res := Result{
		Limit:     b.cfg.Capacity,
		Remaining: b.tokens - n,
		ResetAt:   b.lastRefill.Add(b.cfg.RefillInterval),
	}
	if res.Allowed() {
		b.tokens -= n
	}
	return res, nil
}

// Wait blocks until a token is taken or ctx ends.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := b.Allow()
		if res.Allowed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.clock.After(res.RetryAfter(b.clock.Now())):
		}
	}
}

// refill must be called with mu held.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.cfg.RefillInterval {
		return
	}
	// Capped so that long idle periods cannot overflow.
	maxIntervals := int64(b.cfg.Capacity/b.cfg.RefillRate + 1)
	intervals := min(int64(elapsed/b.cfg.RefillInterval), maxIntervals)
	b.tokens = min(b.tokens+int(intervals)*b.cfg.RefillRate, b.cfg.Capacity)
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * b.cfg.RefillInterval)
	if now.Sub(b.lastRefill) >= b.cfg.RefillInterval {
		b.lastRefill = now
	}
}
