package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"studybuddy/internal/database"
)

// Repository handles all database operations for groups
type Repository interface {
	List(ctx context.Context) ([]Group, error)
	GetByID(ctx context.Context, id int64) (*Group, error)
	Create(ctx context.Context, in NewGroup) (*Group, error)
	Delete(ctx context.Context, id int64) error
}

type pgRepository struct {
	db database.Service
}

// NewRepository creates a new groups repository
func NewRepository(db database.Service) Repository {
	return &pgRepository{db: db}
}

const selectGroups = `
	SELECT g.id, g.title, g.date, g.location, g.content, g.image_url, g.image_key,
	       g.avatar_url, g.user_id::text, COALESCE(u.username, ''), g.created_at,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = g.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = g.id)
	FROM groups g
	LEFT JOIN users u ON u.id = g.user_id`

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Title, &g.Date, &g.Location, &g.Content, &g.ImageURL, &g.ImageKey,
		&g.AvatarURL, &g.UserID, &g.Author, &g.CreatedAt, &g.LikeCount, &g.CommentCount)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.db.Query(ctx, selectGroups+` ORDER BY g.created_at DESC, g.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	out := []Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Group, error) {
	g, err := scanGroup(r.db.QueryRow(ctx, selectGroups+` WHERE g.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return g, nil
}

func (r *pgRepository) Create(ctx context.Context, in NewGroup) (*Group, error) {
	const q = `
		INSERT INTO groups (title, date, location, content, image_url, image_key, avatar_url, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, q, in.Title, in.Date, in.Location, in.Content,
		in.ImageURL, in.ImageKey, in.AvatarURL, in.UserID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}
