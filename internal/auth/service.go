// Package auth is the account service: email/password signup and login,
// OAuth login through Google and GitHub, and the session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"studybuddy/internal/notify"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Service is the account use cases
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*User, error)
	// OAuthLogin finds or creates the account behind a provider profile
	OAuthLogin(ctx context.Context, provider string, p Profile) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

type service struct {
	repo     Repository
	notifier notify.Publisher
	log      *slog.Logger
	cost     int
}

// NewService wires the repository. notifier may be nil.
func NewService(repo Repository, notifier notify.Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, notifier: notifier, log: log, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// usernameFor falls back to the local part of the email
func usernameFor(username, email string) string {
	if u := strings.TrimSpace(username); u != "" {
		return u
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	email := normalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, NewUser{
		Email:        email,
		Username:     usernameFor(req.Username, email),
		PasswordHash: string(hash),
		Provider:     ProviderEmail,
	})
	if err != nil {
		return nil, err
	}

	s.welcome(ctx, user)
	return user, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, error) {
	user, hash, err := s.repo.GetCredentials(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) OAuthLogin(ctx context.Context, provider string, p Profile) (*User, error) {
	email := normalizeEmail(p.Email)
	if email == "" {
		return nil, fmt.Errorf("%s account has no verified email", provider)
	}
	return s.repo.UpsertOAuth(ctx, NewUser{
		Email:     email,
		Username:  usernameFor(p.Name, email),
		AvatarURL: p.AvatarURL,
		Provider:  provider,
	})
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) welcome(ctx context.Context, u *User) {
	if s.notifier == nil {
		return
	}
	ev := notify.NewEvent(notify.TypeWelcome, u.Email, map[string]any{"username": u.Username})
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.log.Warn("Failed to publish welcome notification", "user_id", u.ID, "error", err)
	}
}
