package groups

import (
	"html/template"
	"time"
)

// Group is a study group listing. Its comment thread is keyed by ID.
type Group struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Date         string        `json:"date"`
	Location     string        `json:"location"`
	Content      string        `json:"content"`
	ContentHTML  template.HTML `json:"content_html,omitempty"`
	ImageURL     string        `json:"image_url"`
	ImageKey     string        `json:"-"`
	AvatarURL    string        `json:"avatar_url"`
	UserID       string        `json:"user_id"`
	Author       string        `json:"author"`
	LikeCount    int64         `json:"like_count"`
	CommentCount int64         `json:"comment_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

// CreateGroupRequest is the multipart form of POST /
type CreateGroupRequest struct {
	Title     string `form:"title"`
	Date      string `form:"date"`
	Location  string `form:"location"`
	Content   string `form:"content"`
	AvatarURL string `form:"avatar_url"`
}

// Image is an upload read fully into memory
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewGroup is what the repository inserts
type NewGroup struct {
	CreateGroupRequest
	ImageURL string
	ImageKey string
	UserID   string
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
