package validators

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxTitleLength = 255

var (
	ErrTitleEmpty   = errors.New("title may not be blank")
	ErrTitleTooLong = errors.New("title must be at most 255 characters long")
)

func TitleValidator(t string) error {
	if strings.TrimSpace(t) == "" {
		return ErrTitleEmpty
	}

	if utf8.RuneCountInString(t) > MaxTitleLength {
		return ErrTitleTooLong
	}

	return nil
}
