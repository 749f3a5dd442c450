package core

import (
	"context"
	"time"

	"github.com/dkeye/Collab/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_session.go -package=mocks . TokenProvider

type CreateSessionInput struct {
	Topic    string     `json:"topic"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
}

// SessionRepository is the CRUD surface over session records.
type SessionRepository interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (*domain.Session, error)
	GetActiveSessions(ctx context.Context) ([]domain.Session, error)
	GetMyRecentSessions(ctx context.Context) ([]domain.Session, error)
	GetSessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	JoinSession(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	EndSession(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	GetStreamToken(ctx context.Context) (domain.Credential, error)
}

// TokenProvider issues a fresh credential for every acquisition cycle.
// Errors wrap ErrUnauthenticated or ErrTransport.
type TokenProvider interface {
	FetchToken(ctx context.Context, id domain.SessionID) (domain.Credential, error)
}
