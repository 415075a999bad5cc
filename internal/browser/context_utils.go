// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values of session (the
// chromedp tab context) and is canceled when either session or op is done.
// op usually carries the caller's deadline.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// valueOnlyContext keeps the parent's values but drops its deadline and
// cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// cleanupTimeout bounds protocol calls made after the caller's context ends.
// A hung renderer would otherwise block them forever.
const cleanupTimeout = 3 * time.Second

// cleanupContext detaches ctx and bounds the result with cleanupTimeout.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(Detach(ctx), cleanupTimeout)
}

// Detach returns a context with ctx's values that is never canceled. Pair it
// with a timeout, as cleanupContext does.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
