// Package service contains the account, profile and task logic shared by
// the API and the rendered pages
package service

import (
	"errors"
	"fmt"

	"bitwise74/todo-api/pkg/validators"
)

var (
	ErrAuthentication    = errors.New("no active account found with the given credentials")
	ErrUnverifiedAccount = errors.New("user is not verified")
	ErrUnauthorized      = errors.New("token is invalid or expired")
	ErrNotFound          = errors.New("not found")
	ErrEmailNotFound     = fmt.Errorf("%w: no account with this email", ErrNotFound)
	ErrAlreadyVerified   = errors.New("account is already verified")
	ErrEmailTaken        = errors.New("user with this email already exists.")
	ErrResendCooldown    = errors.New("activation mail was sent recently, try again later")

	// ErrInvalidToken is what callers should match on. The wrapped variants
	// are only there for logs.
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenUnknown  = fmt.Errorf("%w: unknown", ErrInvalidToken)
	ErrTokenExpired  = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenConsumed = fmt.Errorf("%w: already used", ErrInvalidToken)
)

// ValidationError carries messages per request field
type ValidationError struct {
	Fields validators.FieldErrors
	cause  error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{e.Fields}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}

	return errs
}

func invalid(fields validators.FieldErrors) error {
	return &ValidationError{Fields: fields}
}

func invalidField(field string, cause error) error {
	return &ValidationError{
		Fields: validators.FieldErrors{field: {cause.Error()}},
		cause:  cause,
	}
}

// asValidation turns field errors returned by the validators into a
// ValidationError and passes anything else through
func asValidation(err error) error {
	var fe validators.FieldErrors
	if errors.As(err, &fe) {
		return invalid(fe)
	}

	return err
}
