// Package domain holds the records the service stores and exchanges:
// users, sessions and the identities they carry onto the realtime platform.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen  = 64
	DefaultUsername = "User"
)

var (
	ErrExternalIDEmpty = errors.New("external id empty")
	ErrEmailEmpty      = errors.New("email empty")
	ErrUsernameTooLong = errors.New("username too long")
)

type UserID string

// User is the local record attributed to one external identity.
type User struct {
	ID         UserID    `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewUser validates a profile taken from the identity provider. A record
// without an email cannot be attributed, so it is refused.
func NewUser(externalID, email, name, imageURL string) (*User, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrExternalIDEmpty
	}
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailEmpty
	}
	if name == "" {
		name = DefaultUsername
	}
	if len(name) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{
		ID:         UserID(uuid.NewString()),
		ExternalID: externalID,
		Email:      email,
		Name:       name,
		ImageURL:   imageURL,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
