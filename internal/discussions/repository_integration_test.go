//go:build integration

package discussions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/database/dbtest"
	"studybuddy/internal/querycache"
)

func TestPgRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Start(t))
	cache, err := querycache.New(querycache.Options{TTL: time.Minute})
	require.NoError(t, err)
	svc := NewService(repo, cache, nil, nil, nil)

	d1, err := svc.Create(ctx, ada, CreateDiscussionRequest{Name: "Exam prep"})
	require.NoError(t, err)
	d2, err := svc.Create(ctx, ada, CreateDiscussionRequest{Name: "Exam Prep"})
	require.NoError(t, err)
	assert.Equal(t, "exam-prep", d1.Slug)
	assert.Equal(t, "exam-prep-2", d2.Slug)

	bySlug, err := repo.GetBySlug(ctx, "exam-prep-2")
	require.NoError(t, err)
	assert.Equal(t, d2.ID, bySlug.ID)

	_, err = repo.CreatePost(ctx, NewPost{DiscussionID: 424242, Content: "x", UserID: ada.UserID, Author: "ada"})
	assert.ErrorIs(t, err, ErrDiscussionNotFound)

	for _, content := range []string{"one", "two"} {
		_, err := svc.CreatePost(ctx, ada, d1.ID, CreatePostRequest{Content: content}, nil)
		require.NoError(t, err)
	}
	posts, err := svc.Posts(ctx, d1.ID, false)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "one", posts[0].Content)
}
