package core

import (
	"context"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_identity.go -package=mocks . IdentityProvider

// Profile is what the identity provider knows about a user.
type Profile struct {
	ID        string
	FirstName string
	ImageURL  string
	Emails    []string
}

// PrimaryEmail returns the first non-blank address, or "".
func (p Profile) PrimaryEmail() string {
	for _, e := range p.Emails {
		if strings.TrimSpace(e) != "" {
			return e
		}
	}
	return ""
}

type IdentityProvider interface {
	GetUser(ctx context.Context, externalID string) (Profile, error)
}

// SessionVerifier turns a bearer credential into an external identity id.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// TokenIssuer mints realtime platform tokens for a user.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}
