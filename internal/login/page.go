// File: internal/login/page.go
package login

import "context"

// Page is the slice of a browser tab the login engine drives. Selectors are CSS queries.
// Implementations bound nothing themselves; callers give each interaction a context with
// its own deadline.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible or ctx expires.
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ClickScripted activates the element through element.click() in the page.
	ClickScripted(ctx context.Context, selector string) error
	ClearValue(ctx context.Context, selector string) error
	// TypeText focuses the element and sends text as key events.
	TypeText(ctx context.Context, selector, text string) error
	// AssignValue sets the value property and dispatches input and change events.
	AssignValue(ctx context.Context, selector, value string) error
	Value(ctx context.Context, selector string) (string, error)
	ScrollIntoView(ctx context.Context, selector string) error
	// MarkByText finds the first visible element matching candidates whose trimmed,
	// lowercased text or value contains any keyword, tags it with attr="1" and reports
	// whether one was found.
	MarkByText(ctx context.Context, candidates string, keywords []string, attr string) (bool, error)
	// ExpectNavigation arms a load-event listener. The returned function blocks until a
	// page load completes after arming, or until its ctx expires, and must be called once:
	// the listener is released when it returns. Calling it with a done context releases
	// the listener without waiting.
	ExpectNavigation(ctx context.Context) func(context.Context) error
	VisibleText(ctx context.Context) (string, error)
	HasElement(ctx context.Context, selector string) (bool, error)
	// Content returns the serialized document markup.
	Content(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
