package async

import (
	"context"
	"sync"

	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
)

// Dispatcher runs best-effort side work outside the caller's request lifetime.
// Wait blocks until every handler dispatched so far has returned.
type Dispatcher struct {
	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Go executes handler in a new goroutine with a background context that keeps the caller's logger.
// Errors and panics are logged and never reach the caller.
func (d *Dispatcher) Go(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "handler", name, "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async handler failed: "+name)
		}
	}()
}

// Wait blocks until all dispatched handlers finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
