package validators

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
	ErrEmailTooLong = errors.New("email address is too long")
)

const maxEmailLength = 254

var validate = validator.New(validator.WithRequiredStructEnabled())

func EmailValidator(e string) error {
	if strings.TrimSpace(e) == "" {
		return ErrEmailEmpty
	}

	if len(e) > maxEmailLength {
		return ErrEmailTooLong
	}

	if err := validate.Var(e, "required,email"); err != nil {
		return ErrEmailInvalid
	}

	return nil
}

// NormalizeEmail lowercases the domain part, keeping the local part intact
func NormalizeEmail(e string) string {
	e = strings.TrimSpace(e)

	at := strings.LastIndexByte(e, '@')
	if at < 0 {
		return e
	}

	return e[:at] + strings.ToLower(e[at:])
}
