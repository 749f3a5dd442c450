package core

import (
	"context"
	"time"

	"github.com/dkeye/Collab/internal/domain"
)

// UserStore must enforce uniqueness of ExternalID and report violations as ErrDuplicate.
type UserStore interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	DeleteUserByExternalID(ctx context.Context, externalID string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	ListSessionsByStatus(ctx context.Context, status domain.SessionStatus, limit int) ([]domain.Session, error)
	ListRecentForUser(ctx context.Context, userID string, limit int) ([]domain.Session, error)
	AddParticipant(ctx context.Context, id domain.SessionID, userID string) error
	UpdateStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus, endedAt *time.Time) error
}
