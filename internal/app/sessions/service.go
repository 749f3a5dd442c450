// Package sessions implements the session CRUD operations behind the HTTP API.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrForbidden        = errors.New("only the host can end the session")
	ErrSessionCompleted = errors.New("session already completed")
	ErrHostCannotJoin   = errors.New("host cannot join own session as participant")
	ErrSessionFull      = errors.New("session is full")
)

const (
	DefaultMaxParticipants = 4
	DefaultRecentLimit     = 20
)

type Service struct {
	Store           core.SessionStore
	MaxParticipants int
	RecentLimit     int
	Now             func() time.Time

	// mu serialises membership and status changes so the participant cap holds.
	mu sync.Mutex
}

func NewService(store core.SessionStore, maxParticipants, recentLimit int) *Service {
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxParticipants
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Service{
		Store:           store,
		MaxParticipants: maxParticipants,
		RecentLimit:     recentLimit,
		Now:             time.Now,
	}
}

func (s *Service) Create(ctx context.Context, hostID string, in core.CreateSessionInput) (*domain.Session, error) {
	sess, err := domain.NewSession(hostID, in.Topic, in.StartsAt, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().
		Str("module", "app.sessions").
		Str("session", string(sess.ID)).
		Str("call_id", string(sess.CallID)).
		Str("host", hostID).
		Str("status", string(sess.Status)).
		Msg("session created")
	return sess, nil
}

func (s *Service) Active(ctx context.Context) ([]domain.Session, error) {
	return s.Store.ListSessionsByStatus(ctx, domain.StatusActive, 0)
}

func (s *Service) MyRecent(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.ListRecentForUser(ctx, userID, s.RecentLimit)
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	sess, err := s.Store.GetSession(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sess, err
}

// Join adds userID as a participant. Joining twice is a no-op; the first join
// of a scheduled session activates it.
func (s *Service) Join(ctx context.Context, id domain.SessionID, userID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.IsCompleted():
		return nil, ErrSessionCompleted
	case sess.HostID == userID:
		return nil, ErrHostCannotJoin
	case sess.HasParticipant(userID):
		return sess, nil
	case len(sess.ParticipantIDs) >= s.MaxParticipants:
		return nil, ErrSessionFull
	}

	if err := s.Store.AddParticipant(ctx, id, userID); err != nil && !errors.Is(err, core.ErrDuplicate) {
		return nil, fmt.Errorf("join session: %w", err)
	}
	if sess.Status == domain.StatusScheduled {
		if err := s.Store.UpdateStatus(ctx, id, domain.StatusActive, nil); err != nil {
			return nil, fmt.Errorf("activate session: %w", err)
		}
	}
	log.Info().Str("module", "app.sessions").Str("session", string(id)).Str("user", userID).Msg("participant joined")
	return s.Get(ctx, id)
}

func (s *Service) End(ctx context.Context, id domain.SessionID, userID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.HostID != userID {
		return nil, ErrForbidden
	}
	if sess.IsCompleted() {
		return nil, ErrSessionCompleted
	}
	now := s.Now().UTC()
	if err := s.Store.UpdateStatus(ctx, id, domain.StatusCompleted, &now); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	log.Info().Str("module", "app.sessions").Str("session", string(id)).Msg("session ended")
	return s.Get(ctx, id)
}
