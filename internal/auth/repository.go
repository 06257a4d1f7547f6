package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studybuddy/internal/database"
)

// Repository is the users table
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetCredentials returns the user and its password hash, empty for OAuth accounts
	GetCredentials(ctx context.Context, email string) (*User, string, error)
	Create(ctx context.Context, in NewUser) (*User, error)
	// UpsertOAuth returns the account for email, creating it on first login
	UpsertOAuth(ctx context.Context, in NewUser) (*User, error)
}

type pgRepository struct {
	db database.Service
}

// NewRepository returns the PostgreSQL Repository
func NewRepository(db database.Service) Repository {
	return &pgRepository{db: db}
}

const userColumns = `id::text, email, username, avatar_url, provider, created_at`

func scanUser(row pgx.Row, extra ...any) (*User, error) {
	var u User
	dest := append([]any{&u.ID, &u.Email, &u.Username, &u.AvatarURL, &u.Provider, &u.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *pgRepository) GetCredentials(ctx context.Context, email string) (*User, string, error) {
	var hash *string
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE lower(email) = lower($1)`, email), &hash)
	if err != nil {
		return nil, "", err
	}
	if hash == nil {
		return u, "", nil
	}
	return u, *hash, nil
}

func (r *pgRepository) Create(ctx context.Context, in NewUser) (*User, error) {
	var hash *string
	if in.PasswordHash != "" {
		hash = &in.PasswordHash
	}

	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, avatar_url, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		uuid.New(), in.Email, in.Username, hash, in.AvatarURL, in.Provider))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *pgRepository) UpsertOAuth(ctx context.Context, in NewUser) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, avatar_url, provider)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		   SET avatar_url = CASE WHEN users.avatar_url = '' THEN EXCLUDED.avatar_url ELSE users.avatar_url END
		RETURNING `+userColumns,
		uuid.New(), in.Email, in.Username, in.AvatarURL, in.Provider))
	if err != nil {
		return nil, fmt.Errorf("upsert oauth user: %w", err)
	}
	return u, nil
}
