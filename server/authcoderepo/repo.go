package authcoderepo

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("authorization code not found")

// AuthCode is an authorization code issued by the development provider,
// waiting to be exchanged.
type AuthCode struct {
	Provider    string
	Email       string
	RedirectURI string
	CreatedAt   time.Time
}

type Repo interface {
	Upsert(code string, authCode *AuthCode) error
	// Take returns the code and deletes it in one step.
	Take(code string) (*AuthCode, error)
}
