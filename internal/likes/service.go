// Package likes records which users liked which study group
package likes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studybuddy/internal/database"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrGroupNotFound   = errors.New("group not found")
)

type Service interface {
	Like(ctx context.Context, userID string, groupID int64) (*Status, error)
	Unlike(ctx context.Context, userID string, groupID int64) (*Status, error)
	Status(ctx context.Context, userID string, groupID int64) (*Status, error)
}

// ChangeFunc runs after a like or unlike changed a group's count
type ChangeFunc func(ctx context.Context, groupID int64)

type service struct {
	db       database.Service
	onChange ChangeFunc
}

// NewService creates the likes service. onChange may be nil.
func NewService(db database.Service, onChange ChangeFunc) Service {
	if onChange == nil {
		onChange = func(context.Context, int64) {}
	}
	return &service{db: db, onChange: onChange}
}

func (s *service) Like(ctx context.Context, userID string, groupID int64) (*Status, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	const q = `
		INSERT INTO likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`
	tag, err := s.db.Exec(ctx, q, groupID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("insert like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.onChange(ctx, groupID)
	}
	return s.Status(ctx, userID, groupID)
}

func (s *service) Unlike(ctx context.Context, userID string, groupID int64) (*Status, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.onChange(ctx, groupID)
	}
	return s.Status(ctx, userID, groupID)
}

// Status counts the group's likes. Liked stays false for anonymous callers.
func (s *service) Status(ctx context.Context, userID string, groupID int64) (*Status, error) {
	st := &Status{GroupID: groupID}
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, groupID).Scan(&st.Count); err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	if userID == "" {
		return st, nil
	}

	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM likes WHERE post_id = $1 AND user_id = $2`, groupID, userID).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("check like: %w", err)
	default:
		st.Liked = true
	}
	return st, nil
}
