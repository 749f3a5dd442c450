// Package watch keeps the lifecycle controller fed with the latest session record.
package watch

import (
	"context"
	"time"

	"github.com/dkeye/Collab/internal/app/lifecycle"
	"github.com/dkeye/Collab/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = 5 * time.Second

type SessionFetcher interface {
	GetSessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
}

type Observer interface {
	Observe(in lifecycle.Inputs)
}

// Poller re-reads one session on a fixed interval and forwards the derived
// inputs. A failed fetch leaves the last forwarded inputs in place.
type Poller struct {
	Sessions  SessionFetcher
	Target    Observer
	SessionID domain.SessionID
	UserID    string
	Interval  time.Duration
}

func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	p.Target.Observe(lifecycle.Inputs{LoadingSession: true})

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	sess, err := p.Sessions.GetSessionByID(ctx, p.SessionID)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Str("module", "app.watch").Str("session", string(p.SessionID)).Err(err).Msg("poll failed")
		}
		return
	}
	p.Target.Observe(InputsFor(sess, p.UserID))
}

// InputsFor classifies userID against sess.
func InputsFor(sess *domain.Session, userID string) lifecycle.Inputs {
	role := sess.RoleOf(userID)
	return lifecycle.Inputs{
		Session:       sess,
		IsHost:        role == domain.RoleHost,
		IsParticipant: role == domain.RoleParticipant,
	}
}
