// Package session keeps login sessions in Redis. The auth service creates
// them; the gateway resolves them into identity headers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studybuddy/internal/identity"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidSession  = errors.New("invalid session")
)

// CookieName is the cookie carrying the session id
const CookieName = "session_id"

// Manager defines session operations
type Manager interface {
	Create(ctx context.Context, who identity.Identity, maxAge int) (string, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Validate(ctx context.Context, sessionID string) (bool, error)
	// Touch pushes the expiry maxAge seconds into the future
	Touch(ctx context.Context, sessionID string, maxAge int) error
}

type manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a new session manager
func NewManager(store Store) Manager {
	return &manager{store: store, now: time.Now}
}

func key(sessionID string) string {
	return "session:" + sessionID
}

func (m *manager) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.store.Set(ctx, key(s.ID), string(data), s.ExpiresAt.Sub(m.now())); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (m *manager) Create(ctx context.Context, who identity.Identity, maxAge int) (string, error) {
	if !who.Authenticated() {
		return "", ErrInvalidSession
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    who.UserID,
		Email:     who.Email,
		Username:  who.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(maxAge) * time.Second),
	}
	if err := m.save(ctx, s); err != nil {
		return "", err
	}
	return s.ID, nil
}

func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	data, err := m.store.Get(ctx, key(sessionID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, ErrInvalidSession
	}
	if m.now().After(s.ExpiresAt) {
		_ = m.store.Delete(ctx, key(sessionID))
		return nil, ErrSessionExpired
	}
	return &s, nil
}

func (m *manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, key(sessionID))
}

func (m *manager) Validate(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

func (m *manager) Touch(ctx context.Context, sessionID string, maxAge int) error {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	s.ExpiresAt = m.now().Add(time.Duration(maxAge) * time.Second)
	return m.save(ctx, s)
}
