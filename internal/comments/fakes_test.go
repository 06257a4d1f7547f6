package comments

import (
	"context"
	"sort"
	"sync"
	"time"

	"studybuddy/internal/notify"
)

// memStore is an in-memory Store that counts list queries
type memStore struct {
	mu        sync.Mutex
	rows      map[int64]Comment
	nextID    int64
	clock     time.Time
	listCalls int
	listErr   error
	createErr error
	emails    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		rows:   map[int64]Comment{},
		clock:  base,
		emails: map[string]string{},
	}
}

func (m *memStore) ListByPost(ctx context.Context, postID int64) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}

	out := []Comment{}
	for _, c := range m.rows {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	return &c, nil
}

func (m *memStore) Create(ctx context.Context, in NewComment) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	c := Comment{
		ID:              m.nextID,
		PostID:          in.PostID,
		ParentCommentID: in.ParentCommentID,
		Content:         in.Content,
		UserID:          in.UserID,
		Author:          in.Author,
		CreatedAt:       m.clock,
	}
	m.rows[c.ID] = c
	return &c, nil
}

func (m *memStore) DeleteByAuthor(ctx context.Context, id int64, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memStore) AuthorEmail(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[userID], nil
}

func (m *memStore) lists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// recordingPublisher collects published notifications
type recordingPublisher struct {
	events chan notify.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan notify.Event, 8)}
}

func (p *recordingPublisher) Publish(ctx context.Context, ev notify.Event) error {
	p.events <- ev
	return nil
}
