package comments

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/identity"
)

const viewerID = "0d7c3f8e-4b1a-4f5e-9a2b-6c8d1e3f5a7b"

func chain(depth int) []Comment {
	list := []Comment{mk(1, nil, 0)}
	for i := 2; i <= depth; i++ {
		list = append(list, mk(int64(i), ptr(int64(i-1)), i))
	}
	return list
}

func TestIndentLevel(t *testing.T) {
	assert.Equal(t, 0, IndentLevel(0))
	assert.Equal(t, 3, IndentLevel(3))
	assert.Equal(t, MaxIndentDepth, IndentLevel(MaxIndentDepth))
	assert.Equal(t, MaxIndentDepth, IndentLevel(12))
	assert.Equal(t, 0, IndentLevel(-1))
}

func TestFlatten_DepthUncappedIndentCapped(t *testing.T) {
	items := Flatten(BuildTree(chain(7)), RenderOptions{Now: base})

	require.Len(t, items, 7)
	for i, item := range items {
		assert.Equal(t, i, item.Depth)
		assert.Equal(t, IndentLevel(i), item.Indent)
	}
	assert.Equal(t, MaxIndentDepth, items[6].Indent)
}

func TestFlatten_PreOrder(t *testing.T) {
	roots := BuildTree([]Comment{
		mk(1, nil, 1),
		mk(2, nil, 2),
		mk(3, ptr(1), 3),
		mk(4, ptr(3), 4),
	})

	var got []int64
	for _, item := range Flatten(roots, RenderOptions{Now: base}) {
		got = append(got, item.ID)
	}
	assert.Equal(t, []int64{1, 3, 4, 2}, got)
}

func TestFlatten_AnonymousViewerGetsNoControls(t *testing.T) {
	items := Flatten(BuildTree(chain(2)), RenderOptions{Now: base, ReplyTo: 1})

	for _, item := range items {
		assert.False(t, item.CanReply)
		assert.False(t, item.CanDelete)
		assert.False(t, item.ReplyOpen)
	}
}

func TestFlatten_AuthenticatedViewer(t *testing.T) {
	list := chain(2)
	list[1].UserID = viewerID
	viewer := identity.Identity{UserID: viewerID, Username: "grace"}

	items := Flatten(BuildTree(list), RenderOptions{
		Viewer:  viewer,
		Now:     base.Add(2 * time.Hour),
		ReplyTo: 1,
		Draft:   "half typed",
		Error:   "failed to post comment",
	})

	require.Len(t, items, 2)
	assert.True(t, items[0].CanReply)
	assert.False(t, items[0].CanDelete)
	assert.True(t, items[0].ReplyOpen)
	assert.Equal(t, "half typed", items[0].Draft)
	assert.Equal(t, "failed to post comment", items[0].Error)
	assert.Equal(t, "2h ago", items[0].TimeAgo)

	assert.True(t, items[1].CanDelete)
	assert.False(t, items[1].ReplyOpen)
	assert.Empty(t, items[1].Draft)
}

func TestFlatten_InitialAndBody(t *testing.T) {
	c := mk(1, nil, 0)
	c.Author = "émile"
	c.Content = "**hi**"

	items := Flatten(BuildTree([]Comment{c}), RenderOptions{Now: base})

	assert.Equal(t, "É", items[0].Initial)
	assert.Contains(t, string(items[0].Body), "<strong>hi</strong>")
}

func TestRenderThreadHTML(t *testing.T) {
	list := chain(2)
	list[0].Content = "<script>alert(1)</script>"
	thread := &Thread{PostID: 9, Count: 2, Comments: BuildTree(list)}
	viewer := identity.Identity{UserID: viewerID, Email: "grace@example.com"}

	page := NewThreadPage("/api/comments/post/9/thread", 9, thread, nil, RenderOptions{
		Viewer:  viewer,
		Now:     base,
		ReplyTo: 2,
		Draft:   "keep <me>",
	})

	var buf bytes.Buffer
	require.NoError(t, RenderThreadHTML(&buf, page))
	html := buf.String()

	assert.Contains(t, html, "Comments (2)")
	assert.Contains(t, html, `id="comment-1" class="comment indent-0"`)
	assert.Contains(t, html, `id="comment-2" class="comment indent-1"`)
	assert.Contains(t, html, `name="parent_comment_id" value="2"`)
	assert.Contains(t, html, "keep &lt;me&gt;")
	assert.Contains(t, html, "/api/comments/post/9/thread?reply_to=1")
	assert.False(t, strings.Contains(html, "<script>alert"), "comment body must be sanitized")
	// sanitized markup already carries its own line breaks
	assert.NotContains(t, html, "pre-wrap")
}

func TestRenderThreadHTML_LoadError(t *testing.T) {
	page := NewThreadPage("/post/1/thread", 1, nil, errors.New("connection refused"), RenderOptions{})

	var buf bytes.Buffer
	require.NoError(t, RenderThreadHTML(&buf, page))

	assert.Contains(t, buf.String(), "Error loading comments: connection refused")
	assert.NotContains(t, buf.String(), "No comments yet.")
}

func TestRenderThreadHTML_Anonymous(t *testing.T) {
	thread := &Thread{PostID: 1, Count: 1, Comments: BuildTree(chain(1))}
	page := NewThreadPage("/post/1/thread", 1, thread, nil, RenderOptions{Now: base})

	var buf bytes.Buffer
	require.NoError(t, RenderThreadHTML(&buf, page))

	assert.Contains(t, buf.String(), "Log in to join the conversation.")
	assert.NotContains(t, buf.String(), "reply_to=")
	assert.NotContains(t, buf.String(), "Post Comment")
}

func TestNewThreadPage_UnreachableReplyFallsBackToTopForm(t *testing.T) {
	thread := &Thread{PostID: 1, Count: 2, Comments: BuildTree(chain(2))}
	viewer := identity.Identity{UserID: viewerID}

	page := NewThreadPage("/post/1/thread", 1, thread, nil, RenderOptions{
		Viewer: viewer, Now: base, ReplyTo: 42, Draft: "draft", Error: "boom",
	})
	assert.Equal(t, "draft", page.TopDraft)
	assert.Equal(t, "boom", page.TopError)

	page = NewThreadPage("/post/1/thread", 1, thread, nil, RenderOptions{
		Viewer: viewer, Now: base, ReplyTo: 2, Draft: "draft", Error: "boom",
	})
	assert.Empty(t, page.TopDraft)
	assert.Empty(t, page.TopError)
}
