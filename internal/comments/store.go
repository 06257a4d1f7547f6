package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studybuddy/internal/database"
)

// Store is the comment table
type Store interface {
	// ListByPost returns every comment of a post, oldest first
	ListByPost(ctx context.Context, postID int64) ([]Comment, error)
	GetByID(ctx context.Context, id int64) (*Comment, error)
	Create(ctx context.Context, in NewComment) (*Comment, error)
	// DeleteByAuthor removes the comment only when userID wrote it
	DeleteByAuthor(ctx context.Context, id int64, userID string) (bool, error)
	// AuthorEmail looks up where to send reply notifications
	AuthorEmail(ctx context.Context, userID string) (string, error)
}

type pgStore struct {
	db database.Service
}

// NewStore returns the PostgreSQL Store
func NewStore(db database.Service) Store {
	return &pgStore{db: db}
}

const commentColumns = `id, post_id, parent_comment_id, content, user_id::text, author, created_at`

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.ParentCommentID, &c.Content, &c.UserID, &c.Author, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *pgStore) ListByPost(ctx context.Context, postID int64) ([]Comment, error) {
	q := `SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Query(ctx, q, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

func (s *pgStore) GetByID(ctx context.Context, id int64) (*Comment, error) {
	q := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	c, err := scanComment(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return c, nil
}

func (s *pgStore) Create(ctx context.Context, in NewComment) (*Comment, error) {
	q := `INSERT INTO comments (post_id, parent_comment_id, content, user_id, author)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + commentColumns

	c, err := scanComment(s.db.QueryRow(ctx, q, in.PostID, in.ParentCommentID, in.Content, in.UserID, in.Author))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *pgStore) DeleteByAuthor(ctx context.Context, id int64, userID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete comment %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) AuthorEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup author email: %w", err)
	}
	return email, nil
}
