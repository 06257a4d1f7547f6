package discussions

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"studybuddy/internal/identity"
	"studybuddy/internal/realtime"
	"studybuddy/internal/storage"
)

type Handler struct {
	svc Service
	hub *realtime.Hub
}

func NewHandler(svc Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDiscussionNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrContentRequired),
		errors.Is(err, storage.ErrImageType), errors.Is(err, storage.ErrInvalidFilename):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlugExhausted):
		return http.StatusConflict
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
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid discussion ID"})
		return 0, false
	}
	return id, true
}

// List handles GET /
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": list})
}

// Create handles POST /
func (h *Handler) Create(c *gin.Context) {
	var req CreateDiscussionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), identity.FromContext(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Get handles GET /:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetBySlug handles GET /slug/:slug
func (h *Handler) GetBySlug(c *gin.Context) {
	d, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Posts handles GET /:id/posts?order=desc
func (h *Handler) Posts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	posts, err := h.svc.Posts(c.Request.Context(), id, c.Query("order") == "desc")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussion_id": id, "posts": posts})
}

// CreatePost handles POST /:id/posts as JSON or multipart with an optional image
func (h *Handler) CreatePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	var img *Image
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if img, err = readImage(c); err != nil {
			fail(c, err)
			return
		}
	}

	p, err := h.svc.CreatePost(c.Request.Context(), identity.FromContext(c), id, req, img)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Live handles GET /:id/live, a websocket of the discussion's events
func (h *Handler) Live(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.hub.Serve(c.Writer, c.Request, Key(id))
}

func readImage(c *gin.Context) (*Image, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if err := storage.ValidateImage(fh.Filename, contentType, fh.Size); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	return &Image{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}
