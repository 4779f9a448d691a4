package transport_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/imoji/pkg/transport"
)

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	cb := transport.NewCircuitBreakerWithClock(3, 2, time.Minute, clock)

	assert.Equal(t, transport.CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, transport.CircuitClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, transport.CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	clock.Advance(time.Minute + time.Second)
	assert.Equal(t, transport.CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, transport.CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, transport.CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	cb := transport.NewCircuitBreakerWithClock(1, 1, time.Second, clock)

	cb.RecordFailure()
	clock.Advance(2 * time.Second)
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, transport.CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	cb := transport.NewCircuitBreaker(2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, transport.CircuitClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, transport.CircuitOpen, cb.State())
	cb.Reset()
	assert.Equal(t, transport.CircuitClosed, cb.State())
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", transport.CircuitClosed.String())
	assert.Equal(t, "open", transport.CircuitOpen.String())
	assert.Equal(t, "half-open", transport.CircuitHalfOpen.String())
	assert.Equal(t, "unknown", transport.CircuitState(42).String())
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	exp := transport.ExponentialBackoff{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}
	assert.Equal(t, time.Duration(0), exp.NextInterval(0))
	assert.Equal(t, 100*time.Millisecond, exp.NextInterval(1))
	assert.Equal(t, 200*time.Millisecond, exp.NextInterval(2))
	assert.Equal(t, 400*time.Millisecond, exp.NextInterval(3))
	assert.Equal(t, time.Second, exp.NextInterval(10))

	jittered := transport.ExponentialBackoff{InitialInterval: 100 * time.Millisecond, JitterFactor: 0.5}
	for range 20 {
		d := jittered.NextInterval(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}

	fixed := transport.FixedBackoff{Interval: time.Second}
	assert.Equal(t, time.Duration(0), fixed.NextInterval(0))
	assert.Equal(t, time.Second, fixed.NextInterval(5))
}
