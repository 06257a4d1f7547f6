package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"studybuddy/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending migration in migrations/
func Migrate(ctx context.Context, db Service) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool())
	defer sqlDB.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Open connects with New and applies migrations when DB_AUTO_MIGRATE is true
func Open(ctx context.Context) (Service, error) {
	db, err := New(ctx)
	if err != nil {
		return nil, err
	}
	if config.GetEnvBool("DB_AUTO_MIGRATE", false) {
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("Database migrations applied")
	}
	return db, nil
}
