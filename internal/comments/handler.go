package comments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
)

// Handler serves the JSON API
type Handler struct {
	svc Service
}

// NewHandler creates a new comments handler
func NewHandler(svc Service) *Handler { return &Handler{svc: svc} }

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPostNotFound), errors.Is(err, ErrCommentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrInvalidParent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List handles GET /post/:post_id
func (h *Handler) List(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid post ID"})
		return
	}

	thread, err := h.svc.Thread(c.Request.Context(), postID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, thread)
}

// Create handles POST /post/:post_id. On failure the submitted draft is echoed back.
func (h *Handler) Create(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid post ID"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	comment, err := h.svc.Submit(ctx, identity.FromContext(c), postID, req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), ErrorResponse{
			Error: err.Error(),
			Draft: &Draft{Content: req.Content, ParentCommentID: req.ParentCommentID},
		})
		return
	}

	resp := CreateCommentResponse{Success: true, Comment: comment}
	thread, err := h.svc.Thread(ctx, postID)
	if err != nil {
		resp.RefreshError = err.Error()
	} else {
		resp.Thread = thread
	}
	c.JSON(http.StatusCreated, resp)
}

// Delete handles DELETE /:id and returns the rebuilt thread
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid comment ID"})
		return
	}

	ctx := c.Request.Context()
	postID, err := h.svc.Delete(ctx, identity.FromContext(c), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	thread, err := h.svc.Thread(ctx, postID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "refresh_error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "thread": thread})
}
