// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext derives a context from primary that is also cancelled when secondary ends.
// Values, including the chromedp target, come from primary only. When secondary ends first
// the combined context's cause is secondary's cause, so a timeout stays distinguishable
// from a plain cancellation through context.Cause.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// Detach returns a context carrying ctx's values but none of its cancellation or deadline.
// Teardown that must outlive an interrupted run uses it so the chromedp target stays
// addressable.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
