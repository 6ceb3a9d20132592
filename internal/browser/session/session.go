// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoElement is returned by the scripted helpers when the selector matched nothing usable.
var ErrNoElement = errors.New("no matching element")

// Session is a single browser tab. It satisfies login.Page.
type Session struct {
	id     string
	ctx    context.Context // chromedp tab context
	cancel context.CancelFunc
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ ActionExecutor = (*Session)(nil)

// New wraps a chromedp tab context. cancel releases the tab's resources and is called
// once by Close.
func New(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("session").With(zap.String("session_id", id)),
	}
}

func (s *Session) ID() string { return s.id }

// RunActions executes actions on the tab, bounded by both the tab and ctx.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's deadline rather than the derived cancellation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// RunBackgroundActions executes actions even when ctx is already cancelled. A deadline on
// ctx still bounds the run.
func (s *Session) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	bgCtx := Detach(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		bgCtx, cancel = context.WithDeadline(bgCtx, deadline)
		defer cancel()
	}
	return s.RunActions(bgCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.RunActions(ctx, chromedp.Navigate(url))
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.RunActions(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.RunActions(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Session) ClickScripted(ctx context.Context, selector string) error {
	return s.evalFlag(ctx, "click", jsClick, selector)
}

func (s *Session) ClearValue(ctx context.Context, selector string) error {
	return s.evalFlag(ctx, "clear", jsClear, selector)
}

func (s *Session) TypeText(ctx context.Context, selector, text string) error {
	return s.RunActions(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (s *Session) AssignValue(ctx context.Context, selector, value string) error {
	return s.evalFlag(ctx, "assign", jsAssign, selector, value)
}

func (s *Session) Value(ctx context.Context, selector string) (string, error) {
	var v string
	if err := s.RunActions(ctx, chromedp.Value(selector, &v, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return v, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	return s.evalFlag(ctx, "scroll", jsScrollCenter, selector)
}

func (s *Session) MarkByText(ctx context.Context, candidates string, keywords []string, attr string) (bool, error) {
	expr, err := jsCall(jsMarkByText, candidates, keywords, attr)
	if err != nil {
		return false, err
	}
	var found bool
	if err := s.RunActions(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

// ExpectNavigation listens for the next load event on the tab. The listener is detached
// when either ctx or the wait context ends.
func (s *Session) ExpectNavigation(ctx context.Context) func(context.Context) error {
	listenCtx, stop := CombineContext(s.ctx, ctx)
	loaded := make(chan struct{})
	var once sync.Once

	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			once.Do(func() { close(loaded) })
		}
	})

	return func(waitCtx context.Context) error {
		defer stop()
		select {
		case <-loaded:
			return nil
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-listenCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("session closed while waiting for navigation: %w", context.Cause(listenCtx))
		}
	}
}

func (s *Session) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := s.RunActions(ctx, chromedp.Evaluate(jsVisibleText+"()", &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) HasElement(ctx context.Context, selector string) (bool, error) {
	expr, err := jsCall(jsHasElement, selector)
	if err != nil {
		return false, err
	}
	var present bool
	if err := s.RunActions(ctx, chromedp.Evaluate(expr, &present)); err != nil {
		return false, err
	}
	return present, nil
}

func (s *Session) Content(ctx context.Context) (string, error) {
	var markup string
	if err := s.RunActions(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

// Screenshot captures the page even after the run was interrupted.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.RunBackgroundActions(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the tab. Safe to call more than once; later calls return the first result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing session.")
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close tab: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = ctx.Err()
		}
		s.cancel()
	})
	return s.closeErr
}

// evalFlag runs a helper that reports success as a boolean.
func (s *Session) evalFlag(ctx context.Context, op, fn string, args ...any) error {
	expr, err := jsCall(fn, args...)
	if err != nil {
		return err
	}
	var ok bool
	if err := s.RunActions(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", op, args[0], ErrNoElement)
	}
	return nil
}
