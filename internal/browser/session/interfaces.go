// internal/browser/session/interfaces.go
package session

import (
	"context"

	"github.com/chromedp/chromedp"
)

// ActionExecutor runs chromedp actions against a tab. Callers pass operational contexts;
// the implementation combines them with the long-lived tab context.
type ActionExecutor interface {
	RunActions(ctx context.Context, actions ...chromedp.Action) error
	// RunBackgroundActions ignores the cancellation of ctx but keeps its deadline. Used
	// for evidence capture after an interrupt.
	RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error
}
