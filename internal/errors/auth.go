package errors

import (
	"fmt"
	"sort"
)

// MethodNotSupported reports an authentication method that is disabled or unknown.
func MethodNotSupported(method string) *AppError {
	return &AppError{
		Code:    ErrCodeMethodNotSupported,
		Message: fmt.Sprintf("authentication method %q is not supported", method),
		Field:   method,
	}
}

// UserNotFound reports that no user matches the supplied identity.
func UserNotFound() *AppError {
	return New(ErrCodeUserNotFound, "user not found")
}

// UserAlreadyExists reports an identity key that is already taken. label is the
// human-facing name of the key (e.g. "Email").
func UserAlreadyExists(label string) *AppError {
	return &AppError{
		Code:    ErrCodeUserAlreadyExists,
		Message: label + " is already taken",
		Field:   label,
	}
}

// InvalidCredentials reports a password mismatch.
func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "invalid credentials")
}

// PasswordGrantNotFound reports a user without a password credential.
func PasswordGrantNotFound() *AppError {
	return New(ErrCodePasswordGrantNotFound, "password is not set for this user")
}

// PasswordGrantAlreadyExists reports an attempt to create a second password credential.
func PasswordGrantAlreadyExists() *AppError {
	return New(ErrCodePasswordGrantAlreadyExists, "password is already set for this user")
}

// IncorrectOldPassword reports a failed current-password check during a change.
func IncorrectOldPassword() *AppError {
	return &AppError{
		Code:    ErrCodeIncorrectOldPassword,
		Message: "old password is incorrect",
		Field:   "old_password",
	}
}

// CodeNotActive reports a code that does not match any open confirmation.
func CodeNotActive() *AppError {
	return &AppError{
		Code:    ErrCodeCodeNotActive,
		Message: "code is not active",
		Field:   "code",
	}
}

// CodeOutdated reports a matching code whose lifetime has passed.
func CodeOutdated() *AppError {
	return &AppError{
		Code:    ErrCodeCodeOutdated,
		Message: "code is outdated",
		Field:   "code",
	}
}

// GrantNotFound reports a missing credential for the given source.
func GrantNotFound(source string) *AppError {
	return &AppError{
		Code:    ErrCodeGrantNotFound,
		Message: fmt.Sprintf("no %s grant found", source),
		Field:   source,
	}
}

// GenerationExhausted reports that every generated candidate collided with an existing value.
func GenerationExhausted(tries int) *AppError {
	return New(ErrCodeGenerationExhausted,
		fmt.Sprintf("unable to generate a unique value after %d attempts", tries))
}

// ProviderExchangeFailed wraps a failed token exchange or profile fetch with a delegated provider.
func ProviderExchangeFailed(provider string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderExchangeFailed,
		Message: fmt.Sprintf("%s exchange failed", provider),
		Field:   provider,
		Cause:   cause,
	}
}

// ProviderResponseInvalid reports a provider response that lacks the data the flow needs.
func ProviderResponseInvalid(provider, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeProviderResponseInvalid,
		Message: fmt.Sprintf("%s response invalid: %s", provider, reason),
		Field:   provider,
	}
}

// ConfigurationInvalid reports an unusable configuration value.
func ConfigurationInvalid(field, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigurationInvalid,
		Message: fmt.Sprintf("invalid configuration %s: %s", field, reason),
		Field:   field,
	}
}

// Unauthenticated reports a missing or outdated session.
func Unauthenticated() *AppError {
	return New(ErrCodeUnauthenticated, "not logged in")
}

// ValidationFields builds a Validation error from a field → message map.
// The first field in lexical order becomes Field so callers that only read
// one message still get a deterministic answer. Returns nil for an empty map.
func ValidationFields(fields map[string]string) *AppError {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	details := make(map[string]string, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fields[keys[0]],
		Field:   keys[0],
		Details: details,
	}
}
