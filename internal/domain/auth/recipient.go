package auth

import (
	"regexp"
	"strings"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

// RecipientType identifies the channel a code is delivered on.
type RecipientType string

const (
	RecipientEmail RecipientType = "email"
	RecipientPhone RecipientType = "phone"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	phoneFormatting = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// IsEmail reports whether v looks like an email address.
func IsEmail(v string) bool {
	return emailRe.MatchString(strings.TrimSpace(v))
}

// IsPhone reports whether v looks like a phone number once formatting is stripped.
func IsPhone(v string) bool {
	return phoneRe.MatchString(phoneFormatting.Replace(strings.TrimSpace(v)))
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizePhone strips spaces, dashes, dots and parentheses from a phone number.
func NormalizePhone(v string) string {
	return phoneFormatting.Replace(strings.TrimSpace(v))
}

// ClassifyRecipient returns the channel for to by pattern. Email wins when both could match.
func ClassifyRecipient(to string) (RecipientType, error) {
	switch {
	case IsEmail(to):
		return RecipientEmail, nil
	case IsPhone(to):
		return RecipientPhone, nil
	default:
		return "", apperrors.ValidationField("to", "Recipient must be an email address or phone number.")
	}
}

// ResolveRecipient classifies to and checks it against an explicit caller type, if any.
// It returns the normalized address alongside its type.
func ResolveRecipient(to string, explicit RecipientType) (string, RecipientType, error) {
	typ, err := ClassifyRecipient(to)
	if err != nil {
		return "", "", err
	}
	if explicit != "" && explicit != typ {
		return "", "", apperrors.ValidationField("type", "Recipient type does not match the address.")
	}
	return NormalizeRecipient(to, typ), typ, nil
}

// NormalizeRecipient normalizes to according to its type.
func NormalizeRecipient(to string, typ RecipientType) string {
	if typ == RecipientPhone {
		return NormalizePhone(to)
	}
	return NormalizeEmail(to)
}
