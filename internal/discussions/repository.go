package discussions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studybuddy/internal/database"
)

// errSlugTaken is returned by Create when the slug already exists
var errSlugTaken = errors.New("slug taken")

type Repository interface {
	List(ctx context.Context) ([]Discussion, error)
	GetByID(ctx context.Context, id int64) (*Discussion, error)
	GetBySlug(ctx context.Context, slug string) (*Discussion, error)
	Create(ctx context.Context, d Discussion) (*Discussion, error)
	// ListPosts returns the stream oldest first
	ListPosts(ctx context.Context, discussionID int64) ([]Post, error)
	CreatePost(ctx context.Context, in NewPost) (*Post, error)
}

type pgRepository struct {
	db database.Service
}

func NewRepository(db database.Service) Repository {
	return &pgRepository{db: db}
}

const discussionColumns = `id, name, slug, description, COALESCE(user_id::text, ''), created_at`

func scanDiscussion(row pgx.Row) (*Discussion, error) {
	var d Discussion
	if err := row.Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.UserID, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Discussion, error) {
	rows, err := r.db.Query(ctx, `SELECT `+discussionColumns+` FROM discussions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}
	defer rows.Close()

	out := []Discussion{}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discussion: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *pgRepository) get(ctx context.Context, where string, arg any) (*Discussion, error) {
	d, err := scanDiscussion(r.db.QueryRow(ctx, `SELECT `+discussionColumns+` FROM discussions WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDiscussionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discussion: %w", err)
	}
	return d, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Discussion, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *pgRepository) GetBySlug(ctx context.Context, slug string) (*Discussion, error) {
	return r.get(ctx, "slug = $1", slug)
}

func (r *pgRepository) Create(ctx context.Context, d Discussion) (*Discussion, error) {
	const q = `
		INSERT INTO discussions (name, slug, description, user_id)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid)
		RETURNING ` + discussionColumns

	out, err := scanDiscussion(r.db.QueryRow(ctx, q, d.Name, d.Slug, d.Description, d.UserID))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, errSlugTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create discussion: %w", err)
	}
	return out, nil
}

const postColumns = `id, discussion_id, title, content, image_url, user_id::text, author, created_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.DiscussionID, &p.Title, &p.Content, &p.ImageURL, &p.UserID, &p.Author, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) ListPosts(ctx context.Context, discussionID int64) ([]Post, error) {
	q := `SELECT ` + postColumns + `
		FROM discussion_posts
		WHERE discussion_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, q, discussionID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *pgRepository) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	q := `
		INSERT INTO discussion_posts (discussion_id, title, content, image_url, user_id, author)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + postColumns

	p, err := scanPost(r.db.QueryRow(ctx, q, in.DiscussionID, in.Title, in.Content, in.ImageURL, in.UserID, in.Author))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return nil, ErrDiscussionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}
