package likes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler { return &Handler{svc: svc} }

// Register mounts the likes routes under a group id parameter named id
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/:id/likes", h.Get)
	r.POST("/:id/likes", identity.Require(), h.Like)
	r.DELETE("/:id/likes", identity.Require(), h.Unlike)
}

func groupID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return id, true
}

func respond(c *gin.Context, st *Status, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update like"})
	default:
		c.JSON(http.StatusOK, st)
	}
}

// POST /:id/likes
func (h *Handler) Like(c *gin.Context) {
	id, ok := groupID(c)
	if !ok {
		return
	}
	st, err := h.svc.Like(c.Request.Context(), identity.FromContext(c).UserID, id)
	respond(c, st, err)
}

// DELETE /:id/likes
func (h *Handler) Unlike(c *gin.Context) {
	id, ok := groupID(c)
	if !ok {
		return
	}
	st, err := h.svc.Unlike(c.Request.Context(), identity.FromContext(c).UserID, id)
	respond(c, st, err)
}

// GET /:id/likes
func (h *Handler) Get(c *gin.Context) {
	id, ok := groupID(c)
	if !ok {
		return
	}
	st, err := h.svc.Status(c.Request.Context(), identity.FromContext(c).UserID, id)
	respond(c, st, err)
}
