// Package client is the HTTP client for the session API, used by cmd/agent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return core.ErrUnauthenticated
	case e.Status == http.StatusNotFound:
		return core.ErrNotFound
	case e.Status >= 500:
		return core.ErrTransport
	}
	return nil
}

// Client implements core.SessionRepository and core.TokenProvider against the API.
type Client struct {
	BaseURL string
	Token   string

	http *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

type sessionEnvelope struct {
	Session *domain.Session `json:"session"`
}

type sessionsEnvelope struct {
	Sessions []domain.Session `json:"sessions"`
}

type userEnvelope struct {
	User *domain.User `json:"user"`
}

func (c *Client) CreateSession(ctx context.Context, in core.CreateSessionInput) (*domain.Session, error) {
	var out sessionEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/sessions", in, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (c *Client) GetActiveSessions(ctx context.Context) ([]domain.Session, error) {
	var out sessionsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/sessions/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) GetMyRecentSessions(ctx context.Context) ([]domain.Session, error) {
	var out sessionsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/sessions/my-recent", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) GetSessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var out sessionEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (c *Client) JoinSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var out sessionEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(string(id))+"/join", nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (c *Client) EndSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var out sessionEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(string(id))+"/end", nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (c *Client) GetStreamToken(ctx context.Context) (domain.Credential, error) {
	var cred domain.Credential
	if err := c.do(ctx, http.MethodGet, "/api/chat/token", nil, &cred); err != nil {
		return domain.Credential{}, err
	}
	return cred, nil
}

// FetchToken asks for a new credential on every call; nothing is cached.
func (c *Client) FetchToken(ctx context.Context, _ domain.SessionID) (domain.Credential, error) {
	cred, err := c.GetStreamToken(ctx)
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
			return domain.Credential{}, fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
		case errors.Is(err, core.ErrUnauthenticated), errors.Is(err, core.ErrTransport):
			return domain.Credential{}, err
		}
		return domain.Credential{}, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	if cred.Token == "" {
		return domain.Credential{}, fmt.Errorf("%w: empty token", core.ErrTransport)
	}
	return cred, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", core.ErrTransport, method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(res.Body, 4096)).Decode(&msg)
		return &APIError{Status: res.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", core.ErrTransport, method, path, err)
	}
	return nil
}
