package validation

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

const errEmailRequired = "Email is required."

func TestRequired(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "valid input", value: "a@b.com", want: ""},
		{name: "empty", value: "", want: errEmailRequired},
		{name: "whitespace only", value: "   ", want: errEmailRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Required("Email")(tt.value); got != tt.want {
				t.Errorf("Required() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequiredRange(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "at minimum", value: "123456", want: ""},
		{name: "at maximum", value: "123456789012345678901234567890", want: ""},
		{name: "too short", value: "12345", want: "Password must be between 6 and 30 characters."},
		{name: "too long", value: "1234567890123456789012345678901", want: "Password must be between 6 and 30 characters."},
		{name: "empty", value: "", want: "Password is required."},
		{name: "unicode counted by rune", value: "пароль", want: ""},
		{name: "surrounding spaces count", value: " 1234 ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiredRange("Password", 6, 30)(tt.value); got != tt.want {
				t.Errorf("RequiredRange() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaxBytes(t *testing.T) {
	v := MaxBytes("Password", 72)
	if got := v(strings.Repeat("a", 72)); got != "" {
		t.Errorf("MaxBytes(72 ascii) = %q", got)
	}
	// 30 runes, 90 bytes: within a rune limit of 30 but beyond bcrypt's input limit.
	if got := v(strings.Repeat("€", 30)); got != "Password cannot exceed 72 bytes." {
		t.Errorf("MaxBytes(30 x euro) = %q", got)
	}
}

func TestOptional(t *testing.T) {
	v := Optional("First name", 5)
	if got := v(""); got != "" {
		t.Errorf("Optional(\"\") = %q", got)
	}
	if got := v("Alice"); got != "" {
		t.Errorf("Optional(Alice) = %q", got)
	}
	if got := v("Alexandra"); got != "First name cannot exceed 5 characters." {
		t.Errorf("Optional(Alexandra) = %q", got)
	}
}

func TestDigits(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "exact digits", value: "012345"},
		{name: "trimmed", value: " 012345 "},
		{name: "too short", value: "12345", wantErr: true},
		{name: "letters", value: "12a456", wantErr: true},
		{name: "empty", value: "", wantErr: true},
		{name: "non-ascii digits", value: "１２３４５６", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Digits("Code", 6)(tt.value)
			if tt.wantErr && got != "Code must be 6 digits." {
				t.Errorf("Digits() = %q, want error", got)
			}
			if !tt.wantErr && got != "" {
				t.Errorf("Digits() unexpected error: %q", got)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	v := Equal("Password repeat", "secret")
	if got := v("secret"); got != "" {
		t.Errorf("Equal() = %q", got)
	}
	if got := v("Secret"); got != "Password repeat does not match." {
		t.Errorf("Equal() = %q", got)
	}
}

func TestOneOf(t *testing.T) {
	v := OneOf("Type", []string{"email", "phone"})
	for _, ok := range []string{"email", "PHONE", " Email ", ""} {
		if got := v(ok); got != "" {
			t.Errorf("OneOf(%q) = %q", ok, got)
		}
	}
	if got := v("fax"); got != "Type must be one of: email, phone" {
		t.Errorf("OneOf(fax) = %q", got)
	}
}

func TestPattern(t *testing.T) {
	loginRe := regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	v := Pattern("Login", loginRe)

	tests := []struct {
		value string
		want  string
	}{
		{value: "alice_01", want: ""},
		{value: "  alice  ", want: ""},
		{value: "", want: ""},
		{value: "al ice", want: "Login has an invalid format."},
	}
	for _, tt := range tests {
		if got := v(tt.value); got != tt.want {
			t.Errorf("Pattern(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestCheck(t *testing.T) {
	appFail := Check(func(string) error { return apperrors.ValidationField("to", "Recipient has an invalid format.") })
	if got := appFail("x"); got != "Recipient has an invalid format." {
		t.Errorf("Check() = %q", got)
	}

	plainFail := Check(func(string) error { return errors.New("boom") })
	if got := plainFail("x"); got != "boom" {
		t.Errorf("Check() = %q", got)
	}

	pass := Check(func(string) error { return nil })
	if got := pass("x"); got != "" {
		t.Errorf("Check() = %q", got)
	}
}

func TestFieldValidator_StopsAtFirstError(t *testing.T) {
	fv := New().Validate("email", "", Required("Email"), Pattern("Email", regexp.MustCompile(`@`)))
	errs := fv.Errors()
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs["email"] != errEmailRequired {
		t.Errorf("Expected %q, got %v", errEmailRequired, errs["email"])
	}
}

func TestFieldValidator_KeepsFirstFailurePerField(t *testing.T) {
	fv := New().
		Validate("password", "", Required("Password")).
		Validate("password", "x", RequiredRange("Password", 6, 30))
	if got := fv.Errors()["password"]; got != "Password is required." {
		t.Errorf("Expected first failure to stick, got %q", got)
	}
}

func TestFieldValidator_Err(t *testing.T) {
	if err := New().Validate("email", "a@b.com", Required("Email")).Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}

	err := New().
		Validate("email", "", Required("Email")).
		Validate("password", "1", RequiredRange("Password", 6, 30)).
		Err()
	if !apperrors.IsValidation(err) {
		t.Fatalf("Err() should be validation, got %v", err)
	}
	if apperrors.GetField(err) != "email" {
		t.Errorf("GetField() = %q, want email", apperrors.GetField(err))
	}
	if len(apperrors.GetDetails(err)) != 2 {
		t.Errorf("GetDetails() = %v", apperrors.GetDetails(err))
	}
}
