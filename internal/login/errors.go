// File: internal/login/errors.go
package login

import (
	"errors"
	"fmt"
)

// Kind classifies why a login attempt did not end authenticated.
type Kind string

const (
	KindFormNotFound              Kind = "form_not_found"
	KindFieldInjection            Kind = "field_injection"
	KindSubmitControlNotFound     Kind = "submit_control_not_found"
	KindActivationFailed          Kind = "activation_failed"
	KindExtraVerificationRequired Kind = "extra_verification_required"
	KindSessionNotGranted         Kind = "session_not_granted"
	KindCredentialsRejected       Kind = "credentials_rejected"
	KindUnexpected                Kind = "unexpected"
)

var kindText = map[Kind]string{
	KindFormNotFound:              "Login form not found",
	KindFieldInjection:            "Could not fill a credential field",
	KindSubmitControlNotFound:     "Login button not found",
	KindActivationFailed:          "Could not activate the login button",
	KindExtraVerificationRequired: "Extra verification required (captcha)",
	KindSessionNotGranted:         "Session not granted on the panel",
	KindCredentialsRejected:       "Credentials rejected",
	KindUnexpected:                "Unexpected error",
}

// Describe returns an operator-facing sentence for the kind.
func (k Kind) Describe() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return string(k)
}

// Error is the error type returned by every stage of a login attempt.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind carried by err. Errors that are not a *Error are unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnexpected
}

// ErrNotFound is returned by a strategy, or by Locate, when no element matched.
var ErrNotFound = errors.New("element not found")
