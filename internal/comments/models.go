package comments

import "time"

// Comment is one row of the comments table
type Comment struct {
	ID              int64     `json:"id"`
	PostID          int64     `json:"post_id"`
	ParentCommentID *int64    `json:"parent_comment_id"`
	Content         string    `json:"content"`
	UserID          string    `json:"user_id"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
}

// CommentNode is a comment with its direct replies in creation order
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}

// NewComment is what the store inserts
type NewComment struct {
	PostID          int64
	ParentCommentID *int64
	Content         string
	UserID          string
	Author          string
}

// Thread is a freshly built forest for one post
type Thread struct {
	PostID   int64          `json:"post_id"`
	Count    int            `json:"count"`
	Comments []*CommentNode `json:"comments"`
}

// CreateCommentRequest is the body of POST /post/:post_id.
// Content is validated by the service so failures can echo the draft back.
type CreateCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// Draft is returned with a failed submission so the client can keep the form open
type Draft struct {
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// CreateCommentResponse carries the inserted comment and the rebuilt thread
type CreateCommentResponse struct {
	Success      bool     `json:"success"`
	Comment      *Comment `json:"comment"`
	Thread       *Thread  `json:"thread"`
	RefreshError string   `json:"refresh_error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Draft   *Draft `json:"draft,omitempty"`
}
