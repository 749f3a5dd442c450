package sqlite

import (
	"context"
	"fmt"

	"github.com/dkeye/Collab/internal/core"
	"github.com/dkeye/Collab/internal/domain"
)

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, email, name, image_url, created_at FROM users WHERE external_id = ?`,
		externalID,
	).Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.ImageURL, &created)
	if err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, external_id, email, name, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.ExternalID, u.Email, u.Name, u.ImageURL, toMillis(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.ExternalID, core.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) DeleteUserByExternalID(ctx context.Context, externalID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE external_id = ?`, externalID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
