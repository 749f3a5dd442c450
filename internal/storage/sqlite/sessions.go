package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
)

const sessionColumns = `id, call_id, topic, status, host_id, created_at, starts_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s                 domain.Session
		created           int64
		startsAt, endedAt sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.CallID, &s.Topic, &s.Status, &s.HostID, &created, &startsAt, &endedAt); err != nil {
		return domain.Session{}, err
	}
	s.CreatedAt = fromMillis(created)
	s.StartsAt = fromNullMillis(startsAt)
	s.EndedAt = fromNullMillis(endedAt)
	s.ParticipantIDs = []string{}
	return s, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.CallID, sess.Topic, sess.Status, sess.HostID,
		toMillis(sess.CreatedAt), nullMillis(sess.StartsAt), nullMillis(sess.EndedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s: %w", sess.ID, core.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	out := []domain.Session{sess}
	if err := s.loadParticipants(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Store) ListSessionsByStatus(ctx context.Context, status domain.SessionStatus, limit int) ([]domain.Session, error) {
	return s.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
		status, sqlLimit(limit))
}

// ListRecentForUser returns completed sessions the user hosted or joined.
func (s *Store) ListRecentForUser(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	return s.list(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 WHERE s.status = ? AND (s.host_id = ? OR EXISTS (
			SELECT 1 FROM session_participants p WHERE p.session_id = s.id AND p.user_id = ?))
		 ORDER BY s.created_at DESC LIMIT ?`,
		domain.StatusCompleted, userID, userID, sqlLimit(limit))
}

func (s *Store) AddParticipant(ctx context.Context, id domain.SessionID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_participants (session_id, user_id, joined_at) VALUES (?, ?, ?)`,
		id, userID, toMillis(time.Now()))
	if isUniqueViolation(err) {
		return fmt.Errorf("participant %s: %w", userID, core.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus, endedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = COALESCE(?, ended_at) WHERE id = ?`,
		status, nullMillis(endedAt), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	out := []domain.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Close before the participant queries: the pool holds a single connection.
	_ = rows.Close()
	if err := s.loadParticipants(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadParticipants(ctx context.Context, sessions []domain.Session) error {
	for i := range sessions {
		rows, err := s.db.QueryContext(ctx,
			`SELECT user_id FROM session_participants WHERE session_id = ? ORDER BY joined_at, user_id`,
			sessions[i].ID)
		if err != nil {
			return fmt.Errorf("query participants: %w", err)
		}
		for rows.Next() {
			var uid string
			if err := rows.Scan(&uid); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan participant: %w", err)
			}
			sessions[i].ParticipantIDs = append(sessions[i].ParticipantIDs, uid)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
