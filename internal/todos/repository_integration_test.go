//go:build integration

package todos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/database/dbtest"
)

const graceID = "22222222-2222-4222-8222-222222222222"

func TestPgRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Start(t))

	a, err := repo.CreateTodo(ctx, ada.UserID, CreateTodoRequest{Text: "a"})
	require.NoError(t, err)
	b, err := repo.CreateTodo(ctx, ada.UserID, CreateTodoRequest{Text: "b", Link: ptr("https://example.com")})
	require.NoError(t, err)
	foreign, err := repo.CreateTodo(ctx, graceID, CreateTodoRequest{Text: "not yours"})
	require.NoError(t, err)

	t.Run("group moves only owned tasks", func(t *testing.T) {
		g, err := repo.CreateGroup(ctx, ada.UserID, "Week 1", []int64{a.ID, b.ID, foreign.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{a.ID, b.ID}, todoIDs(g.Subtasks))

		graceTodos, err := repo.ListTodos(ctx, graceID)
		require.NoError(t, err)
		require.Len(t, graceTodos, 1)
		assert.Nil(t, graceTodos[0].GroupID)

		owns, err := repo.OwnsGroup(ctx, graceID, g.ID)
		require.NoError(t, err)
		assert.False(t, owns)
	})

	t.Run("group without owned tasks rolls back", func(t *testing.T) {
		_, err := repo.CreateGroup(ctx, ada.UserID, "Empty", []int64{foreign.ID})
		assert.ErrorIs(t, err, ErrNoTasks)

		groups, err := repo.ListGroups(ctx, ada.UserID)
		require.NoError(t, err)
		assert.Len(t, groups, 1)
	})

	t.Run("toggle is scoped to the owner", func(t *testing.T) {
		_, err := repo.ToggleTodo(ctx, graceID, a.ID)
		assert.ErrorIs(t, err, ErrTodoNotFound)

		done, err := repo.ToggleTodo(ctx, ada.UserID, a.ID)
		require.NoError(t, err)
		assert.True(t, done.IsDone)
	})

	t.Run("deleting a group removes its subtasks", func(t *testing.T) {
		groups, err := repo.ListGroups(ctx, ada.UserID)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteGroup(ctx, ada.UserID, groups[0].ID))

		left, err := repo.ListTodos(ctx, ada.UserID)
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("study totals are summed per day", func(t *testing.T) {
		day := func(s string) time.Time {
			d, err := time.Parse(DateLayout, s)
			require.NoError(t, err)
			return d
		}
		for _, s := range []struct {
			date    string
			seconds int
		}{{"2026-10-01", 1800}, {"2026-10-01", 1920}, {"2026-10-02", 45}, {"2026-11-01", 60}} {
			_, err := repo.AddStudyTime(ctx, ada.UserID, day(s.date), s.seconds)
			require.NoError(t, err)
		}

		totals, err := repo.DailyTotals(ctx, ada.UserID, day("2026-10-01"), day("2026-10-31"))
		require.NoError(t, err)
		assert.Equal(t, []DailyTotal{
			{Date: "2026-10-01", Seconds: 3720, Formatted: "01:02"},
			{Date: "2026-10-02", Seconds: 45, Formatted: "45s"},
		}, totals)
	})
}
