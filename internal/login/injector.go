// File: internal/login/injector.go
package login

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Pacer supplies the pause between two keystrokes.
type Pacer interface {
	KeyDelay() time.Duration
}

// Rester is a Pacer that carries state between keystrokes and can reset it.
type Rester interface {
	Rest()
}

type fixedPacer time.Duration

func (f fixedPacer) KeyDelay() time.Duration { return time.Duration(f) }

// Injector fills credential fields. Every page interaction runs under its own step
// deadline, so a hung call fails the typed path instead of stalling the attempt.
type Injector struct {
	logger *zap.Logger
	pacer  Pacer
	step   time.Duration
}

// NewInjector creates an injector. A nil pacer types without pauses; a non-positive step
// leaves interactions bounded only by the caller's context.
func NewInjector(logger *zap.Logger, pacer Pacer, step time.Duration) *Injector {
	if pacer == nil {
		pacer = fixedPacer(0)
	}
	return &Injector{logger: logger, pacer: pacer, step: step}
}

var errValueMismatch = errors.New("field value does not match after input")

// Fill sets the element's value. It first types the value key by key; if that fails or the
// field ends up with a different value, it assigns the value by script. On success the
// field holds exactly value.
func (i *Injector) Fill(ctx context.Context, p Page, field string, el Element, value string) error {
	if r, ok := i.pacer.(Rester); ok {
		r.Rest()
	}

	primary := i.typeValue(ctx, p, el.Selector, value)
	if primary == nil {
		primary = i.verify(ctx, p, el.Selector, value)
		if primary == nil {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	i.logger.Debug("Typed input did not stick, assigning value by script.",
		zap.String("field", field),
		zap.String("selector", el.Selector),
		zap.Error(primary))

	err := bounded(ctx, i.step, func(ctx context.Context) error {
		return p.AssignValue(ctx, el.Selector, value)
	})
	if err == nil {
		err = i.verify(ctx, p, el.Selector, value)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(KindFieldInjection, "fill "+field, errors.Join(primary, err))
	}
	return nil
}

func (i *Injector) typeValue(ctx context.Context, p Page, selector, value string) error {
	if err := bounded(ctx, i.step, func(ctx context.Context) error { return p.Click(ctx, selector) }); err != nil {
		return err
	}
	if err := bounded(ctx, i.step, func(ctx context.Context) error { return p.ClearValue(ctx, selector) }); err != nil {
		return err
	}
	for _, r := range value {
		key := string(r)
		if err := bounded(ctx, i.step, func(ctx context.Context) error { return p.TypeText(ctx, selector, key) }); err != nil {
			return err
		}
		if err := sleep(ctx, i.pacer.KeyDelay()); err != nil {
			return err
		}
	}
	return nil
}

func (i *Injector) verify(ctx context.Context, p Page, selector, want string) error {
	var got string
	err := bounded(ctx, i.step, func(ctx context.Context) error {
		var err error
		got, err = p.Value(ctx, selector)
		return err
	})
	if err != nil {
		return err
	}
	if got != want {
		return errValueMismatch
	}
	return nil
}

// bounded runs op under a deadline d after now, derived from ctx. A non-positive d runs op
// with ctx unchanged.
func bounded(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		return op(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return op(stepCtx)
}

// sleep pauses for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
