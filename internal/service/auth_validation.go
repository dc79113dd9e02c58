package service

import (
	"strings"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	apperrors "github.com/target/mmk-auth/internal/errors"
	"github.com/target/mmk-auth/internal/ports"
	"github.com/target/mmk-auth/internal/validation"
)

const maxIdentityLength = 255

var (
	emailFormat = validation.Check(func(v string) error {
		if v == "" || domainauth.IsEmail(v) {
			return nil
		}
		return apperrors.Validation("Email has an invalid format.")
	})
	phoneFormat = validation.Check(func(v string) error {
		if v == "" || domainauth.IsPhone(v) {
			return nil
		}
		return apperrors.Validation("Phone has an invalid format.")
	})
	recipientFormat = validation.Check(func(v string) error {
		_, err := domainauth.ClassifyRecipient(v)
		return err
	})
)

// identityValidators returns the format checks applied to an identity key value.
func identityValidators(key, label string) []validation.Validator {
	vs := []validation.Validator{validation.Optional(label, maxIdentityLength)}
	switch key {
	case "email":
		vs = append(vs, emailFormat)
	case "phone":
		vs = append(vs, phoneFormat)
	}
	return vs
}

func (s *AuthService[U]) passwordValidators(label string) []validation.Validator {
	return []validation.Validator{
		validation.RequiredRange(label, s.cfg.PasswordMinLength, s.cfg.PasswordMaxLength),
		validation.MaxBytes(label, domainauth.MaxPasswordBytes),
	}
}

// validateRegistration checks identity keys and the password pair and returns the normalized user data.
func (s *AuthService[U]) validateRegistration(in RegisterInput) (ports.UserData, error) {
	fv := validation.New()
	data := make(ports.UserData, len(in.Fields))
	for k, v := range in.Fields {
		data[k] = strings.TrimSpace(v)
	}

	present := 0
	for _, key := range s.users.IdentityKeys() {
		v := data[key]
		fv.Validate(key, v, identityValidators(key, s.users.IdentityKeyLabel(key))...)
		if v == "" {
			delete(data, key)
			continue
		}
		present++
		data[key] = normalizeIdentity(key, v)
	}
	if present == 0 {
		fv.Validate(s.primaryIdentityKey(), "", validation.Required(s.users.IdentityKeyLabel(s.primaryIdentityKey())))
	}

	if err := s.validateNewPassword(fv, in.Password, in.PasswordRepeat).Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *AuthService[U]) primaryIdentityKey() string {
	keys := s.users.IdentityKeys()
	if len(keys) == 0 {
		return "identity"
	}
	return keys[0]
}

func (s *AuthService[U]) validateLogin(in LoginInput) error {
	return validation.New().
		Validate("identity", in.Identity, validation.Required("Login"), validation.Optional("Login", maxIdentityLength)).
		Validate("password", in.Password, validation.Required("Password")).
		Err()
}

func (s *AuthService[U]) validatePasswordChange(in ChangePasswordInput) error {
	fv := validation.New().Validate("old_password", in.OldPassword, validation.Required("Old password"))
	return s.validateNewPassword(fv, in.Password, in.PasswordRepeat).Err()
}

// validateNewPassword checks the password length and that the repeat matches.
func (s *AuthService[U]) validateNewPassword(fv *validation.FieldValidator, password, repeat string) *validation.FieldValidator {
	return fv.
		Validate("password", password, s.passwordValidators("Password")...).
		Validate("password_repeat", repeat, validation.Equal("Password repeat", password))
}

// validateRecipient checks to and the optional explicit type, returning the normalized address.
func validateRecipient(to string, typ domainauth.RecipientType) (string, domainauth.RecipientType, error) {
	if err := validation.New().
		Validate("to", to, validation.Required("Recipient"), recipientFormat).
		Validate("type", string(typ), validation.OneOf("Type",
			[]string{string(domainauth.RecipientEmail), string(domainauth.RecipientPhone)})).
		Err(); err != nil {
		return "", "", err
	}
	return domainauth.ResolveRecipient(to, domainauth.RecipientType(strings.ToLower(string(typ))))
}

func (s *AuthService[U]) validateCode(code string) error {
	return validation.New().
		Validate("code", code, validation.Required("Code"), validation.Digits("Code", s.cfg.CodeLength)).
		Err()
}

// profileUserData keeps the provider attributes usable as user fields. Identity values that fail
// their format check are dropped rather than failing the login.
func (s *AuthService[U]) profileUserData(profile ports.ProfileData) ports.UserData {
	data := make(ports.UserData, len(profile.Attributes))
	for k, v := range profile.Attributes {
		if v = strings.TrimSpace(v); v != "" {
			data[k] = v
		}
	}
	for _, key := range s.users.IdentityKeys() {
		v, ok := data[key]
		if !ok {
			continue
		}
		fv := validation.New().Validate(key, v, identityValidators(key, key)...)
		if fv.Err() != nil {
			delete(data, key)
			continue
		}
		data[key] = normalizeIdentity(key, v)
	}
	return data
}
