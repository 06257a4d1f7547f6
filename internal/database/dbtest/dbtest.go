// Package dbtest starts a throwaway PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"studybuddy/internal/database"
)

// Start runs postgres in a container, applies the migrations and returns a
// connected Service. Everything is torn down when t finishes.
func Start(t *testing.T) database.Service {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("studybuddy"),
		postgres.WithUsername("studybuddy"),
		postgres.WithPassword("studybuddy"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("could not terminate postgres container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("could not get connection string: %v", err)
	}

	db, err := database.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("could not connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("could not migrate: %v", err)
	}
	return db
}

// SeedUser inserts a user and returns its id
func SeedUser(t *testing.T, db database.Service, id, email, username string) string {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, email, username) VALUES ($1, $2, $3)`, id, email, username)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedGroup inserts a study group owned by userID and returns its id
func SeedGroup(t *testing.T, db database.Service, userID, title string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO groups (title, content, user_id) VALUES ($1, $2, $3) RETURNING id`,
		title, title+" description", userID).Scan(&id)
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return id
}
