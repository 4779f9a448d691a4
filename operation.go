package imoji

import (
	"context"
	"image"

	"github.com/google/uuid"

	"github.com/dmitrymomot/imoji/pkg/async"
)

type (
	// ResultSetCallback receives the number of results, or 0 and an error.
	ResultSetCallback func(count int, err error)
	// ImojiCallback receives one result with its index in the result set.
	ImojiCallback func(im *Imoji, index int, err error)
	// CategoriesCallback receives the categories of a classification.
	CategoriesCallback func(categories []Category, err error)
	// RenderCallback receives a rendered sticker. The image is shared with
	// the content cache and must not be modified.
	RenderCallback func(img image.Image, err error)
	// AsyncCallback reports success or failure of an action.
	AsyncCallback func(ok bool, err error)
)

// Operation is the handle of an asynchronous Session call.
//
// Callbacks of one operation never run concurrently. Once Cancel returns, no
// further callback of the operation starts; one already running on another
// goroutine is not interrupted. Cancellation itself is never reported as an
// error.
type Operation struct {
	id   uuid.UUID
	task *async.Task
}

func (o *Operation) ID() uuid.UUID { return o.id }

// Cancel aborts in-flight work and suppresses pending callbacks. Idempotent.
func (o *Operation) Cancel() { o.task.Cancel() }

func (o *Operation) Cancelled() bool { return o.task.Canceled() }

// Done is closed when the operation has finished, including callbacks run by
// the default dispatcher.
func (o *Operation) Done() <-chan struct{} { return o.task.Done() }

// Wait blocks until the operation finishes or ctx ends.
func (o *Operation) Wait(ctx context.Context) error { return o.task.Wait(ctx) }
