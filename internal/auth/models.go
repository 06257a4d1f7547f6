package auth

import "time"

// Provider values stored in users.provider
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// User is a StudyBuddy account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser is what the repository inserts
type NewUser struct {
	Email        string
	Username     string
	PasswordHash string
	AvatarURL    string
	Provider     string
}

// SignupRequest is the body of POST /signup
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"omitempty,max=50"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after signup, login and /me
type AuthResponse struct {
	User      *User  `json:"user"`
	SessionID string `json:"session_id,omitempty"`
}
