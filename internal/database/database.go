// Package database owns the PostgreSQL connection pool shared by the services.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"studybuddy/internal/config"
)

// Service is the subset of pgxpool the repositories depend on
type Service interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Pool() *pgxpool.Pool
	Health(ctx context.Context) map[string]string
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

// DSN returns DATABASE_URL, or assembles one from the DB_* variables
func DSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	u := url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			config.GetEnvOrDefault("DB_USERNAME", "postgres"),
			config.GetEnvOrDefault("DB_PASSWORD", "postgres"),
		),
		Host: fmt.Sprintf("%s:%s",
			config.GetEnvOrDefault("DB_HOST", "localhost"),
			config.GetEnvOrDefault("DB_PORT", "5432"),
		),
		Path: config.GetEnvOrDefault("DB_DATABASE", "studybuddy"),
	}
	q := u.Query()
	q.Set("sslmode", config.GetEnvOrDefault("DB_SSLMODE", "disable"))
	if schema := os.Getenv("DB_SCHEMA"); schema != "" {
		q.Set("search_path", schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// New connects using DSN() and waits for the database to accept connections
func New(ctx context.Context) (Service, error) {
	return Connect(ctx, DSN())
}

// Connect opens a pool for dsn. The first ping is retried with exponential
// backoff so services can start before PostgreSQL is ready.
func Connect(ctx context.Context, dsn string) (Service, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	cfg.MaxConns = int32(config.GetEnvInt("DB_MAX_CONNS", 10))
	cfg.MaxConnIdleTime = config.GetEnvDuration("DB_MAX_CONN_IDLE", 5*time.Minute)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(config.GetEnvInt("DB_CONNECT_RETRIES", 6)), retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("Database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &service{pool: pool}, nil
}

func (s *service) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.pool.Query(ctx, sql, args...)
}

func (s *service) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.pool.QueryRow(ctx, sql, args...)
}

func (s *service) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.pool.Exec(ctx, sql, args...)
}

func (s *service) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

func (s *service) Pool() *pgxpool.Pool {
	return s.pool
}

// Health reports pool status in the shape the /health handlers return
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	st := s.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(st.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(st.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(st.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(st.MaxConns()))
	return stats
}

func (s *service) Close() {
	s.pool.Close()
}
