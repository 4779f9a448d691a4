// Package ratelimiter paces outgoing requests with a token bucket.
//
// The bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. Allow takes a token without blocking; Wait blocks until a
// token is available or the context ends.
//
//	b, err := ratelimiter.NewBucket(ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     5,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	if err := b.Wait(ctx); err != nil {
//		return err // ctx ended first
//	}
//
// Time comes from a clockwork.Clock so tests can drive refills with a fake
// clock (WithClock).
package ratelimiter
