package validators

import (
	"bufio"
	_ "embed"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 255

	DefaultMaxSimilarity = 0.7

	MsgPasswordMismatch = "passwords don't match"
	MsgPasswordNumeric  = "This password is entirely numeric."
	MsgPasswordCommon   = "This password is too common."
)

//go:embed common_passwords.txt
var commonPasswordsRaw string

var commonPasswords = sync.OnceValue(func() map[string]struct{} {
	set := make(map[string]struct{})

	s := bufio.NewScanner(strings.NewReader(commonPasswordsRaw))
	for s.Scan() {
		if p := strings.TrimSpace(s.Text()); p != "" {
			set[strings.ToLower(p)] = struct{}{}
		}
	}

	return set
})

// Attributes are the user facing values a password shouldn't resemble,
// keyed by a human readable name ("email", "first name").
type Attributes map[string]string

// Rule returns a user facing message when the password breaks it
type Rule func(password string, attrs Attributes) (msg string, ok bool)

// PasswordPolicy runs every rule and reports all failures at once
type PasswordPolicy struct {
	Rules []Rule
}

func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		Rules: []Rule{
			MinLength(MinPasswordLength),
			MaxLength(MaxPasswordLength),
			NotNumeric(),
			NotCommon(),
			NotSimilar(DefaultMaxSimilarity),
		},
	}
}

// Check returns every message produced by a failing rule
func (p *PasswordPolicy) Check(password string, attrs Attributes) []string {
	var msgs []string
	for _, r := range p.Rules {
		if msg, ok := r(password, attrs); !ok {
			msgs = append(msgs, msg)
		}
	}

	return msgs
}

// Validate checks a single password and reports failures under field
func (p *PasswordPolicy) Validate(field, password string, attrs Attributes) error {
	if msgs := p.Check(password, attrs); len(msgs) > 0 {
		return FieldErrors{field: msgs}
	}

	return nil
}

// ValidatePair compares the password with its confirmation first. A mismatch
// is reported on its own under "detail" without running the policy.
func (p *PasswordPolicy) ValidatePair(field, password, confirm string, attrs Attributes) error {
	if password != confirm {
		return FieldErrors{"detail": {MsgPasswordMismatch}}
	}

	return p.Validate(field, password, attrs)
}

func MinLength(n int) Rule {
	return func(pw string, _ Attributes) (string, bool) {
		if utf8.RuneCountInString(pw) < n {
			return fmt.Sprintf("This password is too short. It must contain at least %d characters.", n), false
		}

		return "", true
	}
}

func MaxLength(n int) Rule {
	return func(pw string, _ Attributes) (string, bool) {
		if utf8.RuneCountInString(pw) > n {
			return fmt.Sprintf("This password is too long. It must contain at most %d characters.", n), false
		}

		return "", true
	}
}

func NotNumeric() Rule {
	return func(pw string, _ Attributes) (string, bool) {
		if pw == "" {
			return "", true
		}

		for _, r := range pw {
			if !unicode.IsDigit(r) {
				return "", true
			}
		}

		return MsgPasswordNumeric, false
	}
}

func NotCommon() Rule {
	return func(pw string, _ Attributes) (string, bool) {
		if _, ok := commonPasswords()[strings.ToLower(strings.TrimSpace(pw))]; ok {
			return MsgPasswordCommon, false
		}

		return "", true
	}
}

var nonWord = regexp.MustCompile(`\W+`)

// NotSimilar rejects passwords whose similarity ratio to any attribute, or
// to any word of it, reaches maxSimilarity
func NotSimilar(maxSimilarity float64) Rule {
	return func(pw string, attrs Attributes) (string, bool) {
		pw = strings.ToLower(pw)

		for _, name := range slices.Sorted(maps.Keys(attrs)) {
			value := attrs[name]
			if value == "" {
				continue
			}

			value = strings.ToLower(value)
			parts := append(nonWord.Split(value, -1), value)

			for _, part := range parts {
				if part == "" {
					continue
				}

				if similarity(pw, part) >= maxSimilarity {
					return fmt.Sprintf("The password is too similar to the %s.", name), false
				}
			}
		}

		return "", true
	}
}

// UserAttributes builds the attributes compared by NotSimilar
func UserAttributes(email, firstName, lastName string) Attributes {
	attrs := Attributes{
		"email":      email,
		"first name": firstName,
		"last name":  lastName,
	}

	if at := strings.LastIndexByte(email, '@'); at > 0 {
		attrs["username"] = email[:at]
	}

	return attrs
}
