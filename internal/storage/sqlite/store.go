// Package sqlite persists users and sessions in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/Collab/internal/core"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL,
	name        TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	call_id    TEXT NOT NULL UNIQUE,
	topic      TEXT NOT NULL,
	status     TEXT NOT NULL,
	host_id    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	starts_at  INTEGER,
	ended_at   INTEGER
);
CREATE INDEX IF NOT EXISTS sessions_status_created ON sessions(status, created_at);

CREATE TABLE IF NOT EXISTS session_participants (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	joined_at  INTEGER NOT NULL,
	PRIMARY KEY (session_id, user_id)
);
`

// Store implements core.UserStore and core.SessionStore.
type Store struct {
	db *sql.DB
}

var (
	_ core.UserStore    = (*Store)(nil)
	_ core.SessionStore = (*Store)(nil)
)

// Open opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serialises writers; SQLite would otherwise report SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("module", "storage.sqlite").Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
