package session

import (
	"time"

	"studybuddy/internal/identity"
)

// Session is what the session_id cookie points at
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the user the session belongs to
func (s *Session) Identity() identity.Identity {
	return identity.Identity{UserID: s.UserID, Email: s.Email, Username: s.Username}
}
