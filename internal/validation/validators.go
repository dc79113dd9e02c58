// Package validation holds the field validators used to check auth payloads
// before any store is touched.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

// Validator checks a single string value and returns a user-facing message, or "" when valid.
type Validator func(v string) string

// Required rejects blank values.
func Required(label string) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return label + " is required."
		}
		return ""
	}
}

// RequiredRange rejects blank values and values whose rune count falls outside [minLen, maxLen].
// The value is not trimmed when counting so that passwords keep their surrounding spaces.
func RequiredRange(label string, minLen, maxLen int) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return label + " is required."
		}
		n := utf8.RuneCountInString(v)
		if n < minLen || n > maxLen {
			return fmt.Sprintf("%s must be between %d and %d characters.", label, minLen, maxLen)
		}
		return ""
	}
}

// MaxBytes caps the UTF-8 encoded length of the value at maxBytes.
func MaxBytes(label string, maxBytes int) Validator {
	return func(v string) string {
		if len(v) > maxBytes {
			return fmt.Sprintf("%s cannot exceed %d bytes.", label, maxBytes)
		}
		return ""
	}
}

// Optional accepts blank values and caps non-blank ones at maxLen runes.
func Optional(label string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", label, maxLen)
		}
		return ""
	}
}

// Digits requires exactly length ASCII digits.
func Digits(label string, length int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if len(v) != length {
			return fmt.Sprintf("%s must be %d digits.", label, length)
		}
		for i := 0; i < len(v); i++ {
			if v[i] < '0' || v[i] > '9' {
				return fmt.Sprintf("%s must be %d digits.", label, length)
			}
		}
		return ""
	}
}

// Equal requires the value to match want exactly. Used for password repeats.
func Equal(label, want string) Validator {
	return func(v string) string {
		if v != want {
			return label + " does not match."
		}
		return ""
	}
}

// OneOf validates that a field matches one of the provided options (case-insensitive).
// Blank values pass so it can be combined with Required.
func OneOf(label string, options []string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		for _, opt := range options {
			if strings.EqualFold(v, opt) {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(options, ", "))
	}
}

// Pattern validates that a non-blank field matches re.
func Pattern(label string, re *regexp.Regexp) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if !re.MatchString(v) {
			return label + " has an invalid format."
		}
		return ""
	}
}

// Check adapts a classifier such as domainauth.ClassifyRecipient into a Validator.
// AppError messages are surfaced as-is.
func Check(fn func(v string) error) Validator {
	return func(v string) string {
		err := fn(v)
		if err == nil {
			return ""
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr.Message
		}
		return err.Error()
	}
}

// FieldValidator accumulates per-field messages.
type FieldValidator struct {
	errors map[string]string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate runs validators in order against value and records the first failure for field.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	if _, failed := fv.errors[field]; failed {
		return fv
	}
	for _, v := range validators {
		if msg := v(value); msg != "" {
			fv.errors[field] = msg
			break
		}
	}
	return fv
}

// Errors returns the accumulated validation errors.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}

// Err returns a validation AppError carrying every failed field, or nil.
func (fv *FieldValidator) Err() error {
	if len(fv.errors) == 0 {
		return nil
	}
	return apperrors.ValidationFields(fv.errors)
}
