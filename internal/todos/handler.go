package todos

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

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTodoNotFound), errors.Is(err, ErrGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTextRequired), errors.Is(err, ErrTitleRequired), errors.Is(err, ErrNoTasks),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid ID"})
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// Overview handles GET /todos
func (h *Handler) Overview(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context(), identity.FromContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /todos
func (h *Handler) Create(c *gin.Context) {
	var req CreateTodoRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), identity.FromContext(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Toggle handles PATCH /todos/:id/toggle
func (h *Handler) Toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.Toggle(c.Request.Context(), identity.FromContext(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /todos/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), identity.FromContext(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateGroup handles POST /todos/groups
func (h *Handler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.svc.CreateGroup(c.Request.Context(), identity.FromContext(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// DeleteGroup handles DELETE /todos/groups/:id
func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteGroup(c.Request.Context(), identity.FromContext(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddStudyTime handles POST /study-times
func (h *Handler) AddStudyTime(c *gin.Context) {
	var req AddStudyTimeRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.svc.AddStudyTime(c.Request.Context(), identity.FromContext(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// StudyTimes handles GET /study-times?from=&to=
func (h *Handler) StudyTimes(c *gin.Context) {
	totals, err := h.svc.StudyTimes(c.Request.Context(), identity.FromContext(c), c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": totals})
}
