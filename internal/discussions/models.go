package discussions

import (
	"html/template"
	"time"
)

// Discussion is a topic with a flat post stream
type Discussion struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is one entry of a discussion stream
type Post struct {
	ID           int64         `json:"id"`
	DiscussionID int64         `json:"discussion_id"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	ContentHTML  template.HTML `json:"content_html,omitempty"`
	ImageURL     string        `json:"image_url"`
	UserID       string        `json:"user_id"`
	Author       string        `json:"author"`
	CreatedAt    time.Time     `json:"created_at"`
}

type CreateDiscussionRequest struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

type CreatePostRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// Image is an uploaded attachment read into memory
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

type NewPost struct {
	DiscussionID int64
	Title        string
	Content      string
	ImageURL     string
	UserID       string
	Author       string
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
