// Package async runs cancellable background work and gates how its results are
// handed back to the caller.
//
// A Task is started with Go. The task function receives a context that is canceled
// as soon as Task.Cancel is called, so in-flight network calls abort early. Results
// never leave the task directly: the function calls Task.Deliver with a closure, and
// the closure is executed through a Dispatcher only if the task has not been canceled
// by then. Deliveries of one task are serialized, which lets callers treat callbacks
// of a single task as if they ran on one thread.
//
// # Usage
//
//	t := async.Go(ctx, async.Inline, func(ctx context.Context, t *async.Task) {
//	    res, err := fetch(ctx)
//	    t.Deliver(func() { callback(res, err) })
//	})
//
//	// later
//	t.Cancel() // callback will not start after this point
//
// # Dispatchers
//
// Inline runs deliveries on the task goroutine. Applications with an event loop can
// supply a DispatcherFunc that posts the closure to that loop; the cancellation gate
// is evaluated when the closure finally runs.
//
// # Waiting
//
// Wait, WaitTimeout and WaitAll block until task functions return. They do not wait
// for deliveries queued on asynchronous dispatchers.
package async
