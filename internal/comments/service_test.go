package comments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/identity"
	"studybuddy/internal/notify"
	"studybuddy/internal/querycache"
)

var (
	ada   = identity.Identity{UserID: "6f1c2d3e-0000-4000-8000-000000000001", Username: "ada", Email: "ada@example.com"}
	grace = identity.Identity{UserID: "6f1c2d3e-0000-4000-8000-000000000002", Email: "grace@example.com"}
)

func newTestService(t *testing.T, store Store, pub notify.Publisher) Service {
	t.Helper()
	cache, err := querycache.New(querycache.Options{LocalSize: 32, TTL: time.Minute})
	require.NoError(t, err)
	return NewService(store, cache, pub, nil)
}

func TestThread_IsCachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists())
}

func TestSubmit_RefreshShowsNewComment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	before, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Count)

	created, err := svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "  first!  "})
	require.NoError(t, err)
	assert.Equal(t, "first!", created.Content)
	assert.Equal(t, "ada", created.Author)

	after, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, store.lists())
	require.Len(t, after.Comments, 1)
	assert.Equal(t, created.ID, after.Comments[0].ID)
}

func TestSubmit_ReplyAttachesUnderParent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	root, err := svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "question"})
	require.NoError(t, err)
	_, err = svc.Thread(ctx, 1)
	require.NoError(t, err)

	reply, err := svc.Submit(ctx, grace, 1, CreateCommentRequest{Content: "answer", ParentCommentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", reply.Author)

	thread, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, thread.Count)
	require.Len(t, thread.Comments, 1)
	require.Len(t, thread.Comments[0].Replies, 1)
	assert.Equal(t, reply.ID, thread.Comments[0].Replies[0].ID)
}

func TestSubmit_FailedInsertKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Thread(ctx, 1)
	require.NoError(t, err)

	store.createErr = errors.New("connection reset")
	_, err = svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "lost"})
	assert.ErrorIs(t, err, ErrCreateFailed)

	_, err = svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists())
}

func TestSubmit_Validation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	other, err := svc.Submit(ctx, ada, 2, CreateCommentRequest{Content: "elsewhere"})
	require.NoError(t, err)
	missing := int64(404)

	cases := []struct {
		name string
		who  identity.Identity
		req  CreateCommentRequest
		want error
	}{
		{"anonymous", identity.Identity{}, CreateCommentRequest{Content: "hi"}, ErrUnauthenticated},
		{"blank", ada, CreateCommentRequest{Content: " \n\t "}, ErrEmptyContent},
		{"too long", ada, CreateCommentRequest{Content: strings.Repeat("a", MaxContentLength+1)}, ErrContentTooLong},
		{"unknown parent", ada, CreateCommentRequest{Content: "hi", ParentCommentID: &missing}, ErrInvalidParent},
		{"parent on another post", ada, CreateCommentRequest{Content: "hi", ParentCommentID: &other.ID}, ErrInvalidParent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.who, 1, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmit_PostNotFoundPassesThrough(t *testing.T) {
	store := newMemStore()
	store.createErr = ErrPostNotFound
	svc := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), ada, 9, CreateCommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.NotErrorIs(t, err, ErrCreateFailed)
}

func TestThread_LoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.listErr = errors.New("db down")
	svc := newTestService(t, store, nil)

	_, err := svc.Thread(ctx, 1)
	require.Error(t, err)

	store.mu.Lock()
	store.listErr = nil
	store.mu.Unlock()

	thread, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, thread.Comments)
}

func TestThread_ReturnsFreshTreeEachCall(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)
	_, err := svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "hello"})
	require.NoError(t, err)

	first, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	first.Comments[0].Content = "mutated"

	second, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", second.Comments[0].Content)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(t, store, nil)

	root, err := svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "root"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, grace, 1, CreateCommentRequest{Content: "reply", ParentCommentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, grace, root.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Delete(ctx, identity.Identity{}, root.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Delete(ctx, ada, 999)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	_, err = svc.Thread(ctx, 1)
	require.NoError(t, err)

	postID, err := svc.Delete(ctx, ada, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), postID)

	thread, err := svc.Thread(ctx, 1)
	require.NoError(t, err)
	// the orphaned reply is still counted but no longer reachable
	assert.Equal(t, 1, thread.Count)
	assert.Empty(t, thread.Comments)
}

func TestSubmit_ReplyNotifiesParentAuthor(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.emails[ada.UserID] = ada.Email
	pub := newRecordingPublisher()
	svc := newTestService(t, store, pub)

	root, err := svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "question"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, ada, 1, CreateCommentRequest{Content: "self reply", ParentCommentID: &root.ID})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, grace, 1, CreateCommentRequest{Content: "answer", ParentCommentID: &root.ID})
	require.NoError(t, err)

	select {
	case ev := <-pub.events:
		assert.Equal(t, notify.TypeCommentReply, ev.Type)
		assert.Equal(t, ada.Email, ev.Recipient)
		assert.Equal(t, "answer", ev.Data["excerpt"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reply notification")
	}

	select {
	case ev := <-pub.events:
		t.Fatalf("unexpected notification %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "héll…", excerpt("héllo world", 4))
}
