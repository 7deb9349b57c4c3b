package auth

import (
	"net/mail"
	"strings"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
)

// Credentials are the email/password pair submitted to Login.
type Credentials struct {
	Email    string
	Password string
}

// Validator checks input shape before any network call.
type Validator struct {
	minPasswordLength int
}

// NewValidator creates a new Validator instance
func NewValidator(minPasswordLength int) *Validator {
	if minPasswordLength < 1 {
		minPasswordLength = 1
	}
	return &Validator{minPasswordLength: minPasswordLength}
}

// ValidateCredentials requires a bare email address and a non-empty password.
func (v *Validator) ValidateCredentials(c Credentials) error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return sessionerrors.New(sessionerrors.ErrValidation, "Email is required.", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address, "@") {
		return sessionerrors.New(sessionerrors.ErrValidation, "Enter a valid email address.", err)
	}
	if len(c.Password) < v.minPasswordLength {
		return sessionerrors.New(sessionerrors.ErrValidation, "Password is required.", nil)
	}
	return nil
}

// ValidateProvider requires a non-empty provider name.
func (v *Validator) ValidateProvider(provider string) error {
	if strings.TrimSpace(provider) == "" {
		return sessionerrors.New(sessionerrors.ErrValidation, "A sign in provider is required.", nil)
	}
	return nil
}
