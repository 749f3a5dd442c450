// Package identity talks to the external identity provider: it verifies
// session credentials and fetches user profiles.
package identity

import (
	"errors"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = fmt.Errorf("%w: invalid session token", core.ErrUnauthenticated)

// JWTVerifier accepts HS256 session tokens signed with the provider's secret.
type JWTVerifier struct {
	Secret []byte
	Issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{Secret: []byte(secret), Issuer: issuer}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	if token == "" || len(v.Secret) == 0 {
		return "", ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
