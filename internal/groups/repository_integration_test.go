//go:build integration

package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/database/dbtest"
	"studybuddy/internal/likes"
)

func TestPgRepository_CountsAndCascade(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Start(t)
	repo := NewRepository(db)
	dbtest.SeedUser(t, db, owner.UserID, "ada@example.com", "ada")

	g, err := repo.Create(ctx, NewGroup{
		CreateGroupRequest: CreateGroupRequest{Title: "Stats", Content: "Bayes"},
		UserID:             owner.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", g.Author)

	var changed []int64
	likeSvc := likes.NewService(db, func(_ context.Context, id int64) { changed = append(changed, id) })
	_, err = likeSvc.Like(ctx, owner.UserID, g.ID)
	require.NoError(t, err)
	st, err := likeSvc.Like(ctx, owner.UserID, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Count)
	assert.True(t, st.Liked)
	assert.Equal(t, []int64{g.ID}, changed)

	_, err = likeSvc.Like(ctx, owner.UserID, 999999)
	assert.ErrorIs(t, err, likes.ErrGroupNotFound)

	_, err = db.Exec(ctx, `INSERT INTO comments (post_id, content, user_id, author) VALUES ($1, 'hi', $2, 'ada')`, g.ID, owner.UserID)
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].LikeCount)
	assert.EqualValues(t, 1, list[0].CommentCount)

	require.NoError(t, repo.Delete(ctx, g.ID))
	var left int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM comments`).Scan(&left))
	assert.Zero(t, left)
	assert.ErrorIs(t, repo.Delete(ctx, g.ID), ErrGroupNotFound)
}
