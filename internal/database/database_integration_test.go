//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/database"
	"studybuddy/internal/database/dbtest"
)

func TestHealth(t *testing.T) {
	db := dbtest.Start(t)

	stats := db.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.NotEmpty(t, stats["max_conns"])
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := dbtest.Start(t)
	require.NoError(t, database.Migrate(context.Background(), db))

	var n int
	err := db.QueryRow(context.Background(),
		`SELECT count(*) FROM information_schema.tables WHERE table_name IN ('users','groups','comments','discussions','todos','study_times')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}
