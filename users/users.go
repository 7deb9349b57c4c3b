package users

import (
	"fmt"
	"time"
	"unicode"

	"github.com/jrsteele09/go-session-client/session"
	"golang.org/x/crypto/bcrypt"
)

// RoleType is the coarse role the stub reports for a user.
type RoleType string

const (
	RoleAdmin  RoleType = "admin"
	RoleMember RoleType = "member"
)

type User struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	Role         RoleType  `json:"role,omitempty"`
	Blocked      bool      `json:"blocked,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`

	// Providers lists the federated identities linked to this user.
	Providers []string `json:"providers,omitempty"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPassword compares password with the user's stored hash. Users
// created through a provider have no hash and never match.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) HasProvider(provider string) bool {
	for _, p := range u.Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// AuthUser is the wire shape returned by /login, /refresh and /me.
func (u *User) AuthUser() session.AuthUser {
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = u.DateJoined
	}
	return session.AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		IsActive:  !u.Blocked,
		CreatedAt: u.DateJoined,
		UpdatedAt: updated,
	}
}
