package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestVerify(t *testing.T) {
	v := NewJWTVerifier("secret", "https://id.example")
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	good := sign(t, "secret", jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://id.example", ExpiresAt: exp})
	sub, err := v.Verify(good)
	if err != nil || sub != "user_1" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}

	bad := map[string]string{
		"empty":        "",
		"wrong secret": sign(t, "other", jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://id.example", ExpiresAt: exp}),
		"wrong issuer": sign(t, "secret", jwt.RegisteredClaims{Subject: "user_1", Issuer: "evil", ExpiresAt: exp}),
		"no subject":   sign(t, "secret", jwt.RegisteredClaims{Issuer: "https://id.example", ExpiresAt: exp}),
		"no expiry":    sign(t, "secret", jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://id.example"}),
		"expired": sign(t, "secret", jwt.RegisteredClaims{
			Subject: "user_1", Issuer: "https://id.example",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
	}
	for name, tok := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(tok); !errors.Is(err, core.ErrUnauthenticated) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestClientGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/users/user_1":
			_, _ = w.Write([]byte(`{"id":"user_1","first_name":"Ann","image_url":"http://img","email_addresses":[{"email_address":"ann@example.com"}]}`))
		case "/v1/users/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sk", time.Second)
	p, err := c.GetUser(context.Background(), "user_1")
	if err != nil {
		t.Fatal(err)
	}
	if p.PrimaryEmail() != "ann@example.com" || p.FirstName != "Ann" || p.ImageURL != "http://img" {
		t.Fatalf("profile = %+v", p)
	}
	if _, err := c.GetUser(context.Background(), "ghost"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if _, err := c.GetUser(context.Background(), "broken"); !errors.Is(err, core.ErrTransport) {
		t.Fatalf("5xx err = %v", err)
	}
}
