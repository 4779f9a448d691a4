// Package transport is the HTTP layer under the imoji API client.
//
// Client.Do sends a buffered Request and returns the fully read Response.
// Failures are retried with a BackoffStrategy (exponential with jitter by
// default); 4xx responses other than 408, 425 and 429 end the loop at once
// because retrying cannot change them. A shared CircuitBreaker stops calling an
// upstream that keeps failing and probes it again after a recovery timeout.
//
// Non-2xx responses surface as *StatusError wrapped in ErrPermanentFailure or
// ErrRequestFailed, so callers recover the status with StatusCode(err) or
// errors.As.
//
//	c := transport.New(
//		transport.WithMaxRetries(3),
//		transport.WithCircuitBreaker(transport.NewCircuitBreaker(5, 2, 30*time.Second)),
//		transport.WithOnAttempt(func(a transport.Attempt) {
//			logger.Debug("api attempt", "url", a.URL, "status", a.StatusCode)
//		}),
//	)
//	resp, err := c.Do(ctx, transport.Request{Method: http.MethodGet, URL: u})
//
// Waits between retries go through a clockwork.Clock, so tests can drive them
// with a fake clock.
package transport
