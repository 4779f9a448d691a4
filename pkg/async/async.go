package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher decides where delivered callbacks run.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline runs every delivery on the goroutine that calls Deliver.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// Task is a cancellable unit of background work with a delivery gate.
// Results leave the task only through Deliver, which drops them once the task
// is canceled, so a canceled task never reaches its consumer.
type Task struct {
	ctx        context.Context
	cancel     context.CancelFunc
	dispatcher Dispatcher

	canceled  atomic.Bool
	deliverMu sync.Mutex // serializes deliveries of one task
	done      chan struct{}
}

// Go starts fn in its own goroutine and returns the Task controlling it.
// The context passed to fn is canceled when the task is canceled or parent ends.
// A nil dispatcher means Inline.
func Go(parent context.Context, dispatcher Dispatcher, fn func(ctx context.Context, t *Task)) *Task {
	if dispatcher == nil {
		dispatcher = Inline
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		ctx:        ctx,
		cancel:     cancel,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		// Pre-canceled parents must not start work nor deliver anything
		select {
		case <-ctx.Done():
			t.canceled.Store(true)
			return
		default:
		}

		if fn != nil {
			fn(ctx, t)
		}
	}()

	return t
}

// Context returns the task context.
func (t *Task) Context() context.Context { return t.ctx }

// Deliver hands fn to the dispatcher. The cancellation gate is checked right
// before fn runs; deliveries of one task never overlap.
// Returns false if the task was already canceled when Deliver was called.
func (t *Task) Deliver(fn func()) bool {
	if fn == nil || t.canceled.Load() {
		return false
	}
	t.dispatcher.Dispatch(func() {
		t.deliverMu.Lock()
		defer t.deliverMu.Unlock()
		if t.canceled.Load() {
			return
		}
		fn()
	})
	return true
}

// Cancel stops the task and closes the delivery gate: no delivery starts
// after Cancel returns, while one already running is left to finish. It is
// safe to call more than once and from inside a delivered callback.
func (t *Task) Cancel() {
	t.canceled.Store(true)
	t.cancel()
}

// Canceled reports whether Cancel was called or the parent context ended first.
func (t *Task) Canceled() bool {
	return t.canceled.Load()
}

// Done is closed once the task function has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// IsComplete checks without blocking whether the task function has returned.
func (t *Task) IsComplete() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task function returns or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout is Wait bounded by a duration; it returns ErrTimeout on expiry.
func (t *Task) WaitTimeout(timeout time.Duration) error {
	select {
	case <-t.done:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// WaitAll waits for every task to return, or for ctx to end.
func WaitAll(ctx context.Context, tasks ...*Task) error {
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if err := t.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CancelAll cancels every task.
func CancelAll(tasks ...*Task) {
	for _, t := range tasks {
		if t != nil {
			t.Cancel()
		}
	}
}
