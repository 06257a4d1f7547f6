package comments

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
)

// HeaderForwardedPrefix is set by the gateway to the path prefix it strips
const HeaderForwardedPrefix = "X-Forwarded-Prefix"

func threadPath(c *gin.Context, postID int64) string {
	prefix := strings.TrimRight(c.GetHeader(HeaderForwardedPrefix), "/")
	return fmt.Sprintf("%s/post/%d/thread", prefix, postID)
}

func (h *Handler) renderPage(c *gin.Context, status int, postID int64, opts RenderOptions) {
	thread, err := h.svc.Thread(c.Request.Context(), postID)
	if err != nil {
		_ = c.Error(err)
		if status < http.StatusInternalServerError {
			status = http.StatusInternalServerError
		}
	}

	page := NewThreadPage(threadPath(c, postID), postID, thread, err, opts)
	var buf bytes.Buffer
	if err := RenderThreadHTML(&buf, page); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "failed to render thread")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// ThreadPage handles GET /post/:post_id/thread[?reply_to=<id>]
func (h *Handler) ThreadPage(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		c.String(http.StatusBadRequest, "invalid post id")
		return
	}

	replyTo, _ := strconv.ParseInt(c.Query("reply_to"), 10, 64)
	h.renderPage(c, http.StatusOK, postID, RenderOptions{
		Viewer:  identity.FromContext(c),
		Now:     time.Now(),
		ReplyTo: replyTo,
	})
}

// SubmitForm handles the comment and reply forms. Success redirects back to
// the thread, which refetches; failure re-renders with the form still open.
func (h *Handler) SubmitForm(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		c.String(http.StatusBadRequest, "invalid post id")
		return
	}

	req := CreateCommentRequest{Content: c.PostForm("content")}
	if raw := strings.TrimSpace(c.PostForm("parent_comment_id")); raw != "" {
		parentID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid parent comment id")
			return
		}
		req.ParentCommentID = &parentID
	}

	who := identity.FromContext(c)
	if _, err := h.svc.Submit(c.Request.Context(), who, postID, req); err != nil {
		_ = c.Error(err)
		opts := RenderOptions{Viewer: who, Now: time.Now(), Draft: req.Content, Error: err.Error()}
		if req.ParentCommentID != nil {
			opts.ReplyTo = *req.ParentCommentID
		}
		h.renderPage(c, statusFor(err), postID, opts)
		return
	}

	c.Redirect(http.StatusSeeOther, threadPath(c, postID))
}

// DeleteForm handles POST /post/:post_id/thread/:id/delete
func (h *Handler) DeleteForm(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		c.String(http.StatusBadRequest, "invalid post id")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		c.String(http.StatusBadRequest, "invalid comment id")
		return
	}

	who := identity.FromContext(c)
	if _, err := h.svc.Delete(c.Request.Context(), who, id); err != nil {
		_ = c.Error(err)
		h.renderPage(c, statusFor(err), postID, RenderOptions{Viewer: who, Now: time.Now()})
		return
	}

	c.Redirect(http.StatusSeeOther, threadPath(c, postID))
}
