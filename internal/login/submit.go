// File: internal/login/submit.go
package login

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/config"
)

// Submitter finds and activates the login control, then waits for the page to settle.
type Submitter struct {
	logger     *zap.Logger
	cfg        config.LoginConfig
	strategies []Strategy
}

// NewSubmitter creates a submitter walking the given strategies.
func NewSubmitter(logger *zap.Logger, cfg config.LoginConfig, strategies []Strategy) *Submitter {
	return &Submitter{logger: logger, cfg: cfg, strategies: strategies}
}

// Submit activates the login control. A missing page transition is not an error: single
// page panels swap content in place, so after the navigation wait times out Submit waits
// the SPA grace period and returns nil.
func (s *Submitter) Submit(ctx context.Context, p Page) error {
	el, err := Locate(ctx, p, s.strategies, s.cfg.SubmitTimeout)
	if errors.Is(err, ErrNotFound) {
		return newError(KindSubmitControlNotFound, "submit", err)
	}
	if err != nil {
		return err
	}
	s.logger.Debug("Submit control resolved.", zap.String("selector", el.Selector), zap.String("strategy", el.Strategy))

	scroll := func(ctx context.Context) error { return p.ScrollIntoView(ctx, el.Selector) }
	if err := bounded(ctx, s.cfg.SubmitTimeout, scroll); err != nil {
		s.logger.Debug("Scroll into view failed.", zap.Error(err))
	}
	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}

	waitNav := p.ExpectNavigation(ctx)
	if err := s.activate(ctx, p, el); err != nil {
		releaseNavigation(waitNav)
		return err
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.PostSubmitTimeout)
	defer cancel()
	if err := waitNav(navCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("No navigation after submit, waiting grace period.", zap.Duration("grace", s.cfg.SPAGrace))
		return sleep(ctx, s.cfg.SPAGrace)
	}
	return nil
}

// activate clicks the control, falling back to a scripted click. Each path gets its own
// SubmitTimeout; a click that hangs past it counts as failed.
func (s *Submitter) activate(ctx context.Context, p Page, el Element) error {
	clickErr := bounded(ctx, s.cfg.SubmitTimeout, func(ctx context.Context) error {
		return p.Click(ctx, el.Selector)
	})
	if clickErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Debug("Direct click failed, using scripted click.", zap.Error(clickErr))
	err := bounded(ctx, s.cfg.SubmitTimeout, func(ctx context.Context) error {
		return p.ClickScripted(ctx, el.Selector)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindActivationFailed, "submit", errors.Join(clickErr, err))
	}
	return nil
}

// releaseNavigation detaches a listener that will never be waited on.
func releaseNavigation(wait func(context.Context) error) {
	done, cancel := context.WithCancel(context.Background())
	cancel()
	_ = wait(done)
}
