// Package groups is the study group board. Groups own the comment threads
// served by the comments service and the likes mounted beside them.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studybuddy/internal/identity"
	"studybuddy/internal/markup"
	"studybuddy/internal/querycache"
	"studybuddy/internal/storage"
)

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrForbidden       = errors.New("only the owner can delete this group")
	ErrUnauthenticated = errors.New("you must be logged in")
	ErrTitleRequired   = errors.New("title is required")
	ErrContentRequired = errors.New("content is required")
)

// ListKey caches the whole board
const ListKey = "groups:all"

// ItemKey caches one group
func ItemKey(id int64) string {
	return fmt.Sprintf("group:%d", id)
}

type Service interface {
	List(ctx context.Context) ([]Group, error)
	Get(ctx context.Context, id int64) (*Group, error)
	Create(ctx context.Context, who identity.Identity, req CreateGroupRequest, img *Image) (*Group, error)
	Delete(ctx context.Context, who identity.Identity, id int64) error
	// Invalidate drops the cached board and group id, for writers outside
	// this service such as likes
	Invalidate(ctx context.Context, id int64)
}

type service struct {
	repo  Repository
	cache *querycache.Cache
	store storage.Service
	log   *slog.Logger
	now   func() time.Time
}

// NewService wires the repository, cache and image store. store may be nil
// when uploads are disabled.
func NewService(repo Repository, cache *querycache.Cache, store storage.Service, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, cache: cache, store: store, log: log, now: time.Now}
}

func (s *service) List(ctx context.Context) ([]Group, error) {
	list, err := querycache.Load(ctx, s.cache, ListKey, s.repo.List)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].ContentHTML = markup.Render(list[i].Content)
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Group, error) {
	g, err := querycache.Load(ctx, s.cache, ItemKey(id), func(ctx context.Context) (*Group, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	g.ContentHTML = markup.Render(g.Content)
	return g, nil
}

func (s *service) Create(ctx context.Context, who identity.Identity, req CreateGroupRequest, img *Image) (*Group, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" {
		return nil, ErrTitleRequired
	}
	if req.Content == "" {
		return nil, ErrContentRequired
	}

	in := NewGroup{CreateGroupRequest: req, UserID: who.UserID}
	if img != nil {
		if s.store == nil {
			return nil, errors.New("image uploads are not configured")
		}
		if err := storage.ValidateImage(img.Filename, img.ContentType, int64(len(img.Data))); err != nil {
			return nil, err
		}
		in.ImageKey = storage.ObjectKey("", req.Title, img.Filename, s.now())
		url, err := s.store.Upload(ctx, in.ImageKey, img.ContentType, img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		in.ImageURL = url
	}

	g, err := s.repo.Create(ctx, in)
	if err != nil {
		if in.ImageKey != "" {
			s.removeImage(ctx, in.ImageKey)
		}
		return nil, err
	}

	s.Invalidate(ctx, g.ID)
	return g, nil
}

func (s *service) Delete(ctx context.Context, who identity.Identity, id int64) error {
	if !who.Authenticated() {
		return ErrUnauthenticated
	}
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if g.UserID != who.UserID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.Invalidate(ctx, id)
	if g.ImageKey != "" {
		s.removeImage(ctx, g.ImageKey)
	}
	return nil
}

func (s *service) Invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, ListKey, ItemKey(id)); err != nil {
		s.log.Warn("Failed to invalidate group cache", "group_id", id, "error", err)
	}
}

func (s *service) removeImage(ctx context.Context, key string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("Failed to delete group image", "key", key, "error", err)
	}
}
