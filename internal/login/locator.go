// File: internal/login/locator.go
package login

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Locate walks strategies in order, giving each at most timeout, and returns the first
// element found. It returns ErrNotFound when none matched and the context error if ctx
// ends while walking.
func Locate(ctx context.Context, p Page, strategies []Strategy, timeout time.Duration) (Element, error) {
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return Element{}, err
		}
		el, err := resolveWithin(ctx, p, s, timeout)
		if err == nil {
			return el, nil
		}
		if ctx.Err() != nil {
			return Element{}, ctx.Err()
		}
	}
	return Element{}, ErrNotFound
}

func resolveWithin(ctx context.Context, p Page, s Strategy, timeout time.Duration) (Element, error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Resolve(sctx, p)
}

// Form is a located username/password pair.
type Form struct {
	Username Element
	Password Element
}

// LocateForm resolves both credential fields independently. When either is missing the
// result is a form_not_found error naming the missing fields.
func LocateForm(ctx context.Context, p Page, c Catalog, timeout time.Duration) (Form, error) {
	var form Form
	var missing []string

	user, err := Locate(ctx, p, c.Username, timeout)
	switch {
	case err == nil:
		form.Username = user
	case errors.Is(err, ErrNotFound):
		missing = append(missing, "username")
	default:
		return Form{}, err
	}

	pass, err := Locate(ctx, p, c.Password, timeout)
	switch {
	case err == nil:
		form.Password = pass
	case errors.Is(err, ErrNotFound):
		missing = append(missing, "password")
	default:
		return Form{}, err
	}

	if len(missing) > 0 {
		return Form{}, newError(KindFormNotFound, "locate form",
			errors.New("no visible "+strings.Join(missing, " or ")+" field"))
	}
	return form, nil
}
