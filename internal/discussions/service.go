// Package discussions serves topic boards with flat post streams. New posts
// are announced on the realtime channel so open pages refetch.
package discussions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"studybuddy/internal/identity"
	"studybuddy/internal/markup"
	"studybuddy/internal/querycache"
	"studybuddy/internal/realtime"
	"studybuddy/internal/storage"
)

// EventPostCreated is published on Key(discussionID) after a post insert
const EventPostCreated = "discussion_post.created"

// maxSlugAttempts bounds the numeric suffixes tried for a taken slug
const maxSlugAttempts = 50

var (
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrUnauthenticated    = errors.New("you must be logged in")
	ErrNameRequired       = errors.New("name is required")
	ErrContentRequired    = errors.New("content is required")
	ErrSlugExhausted      = errors.New("could not find a free slug")
)

const listKey = "discussions:all"

// Key is the realtime key of a discussion's stream
func Key(discussionID int64) string {
	return fmt.Sprintf("discussion:%d", discussionID)
}

// PostsKey caches a discussion's stream
func PostsKey(discussionID int64) string {
	return fmt.Sprintf("discussion_posts:%d", discussionID)
}

type Service interface {
	List(ctx context.Context) ([]Discussion, error)
	Get(ctx context.Context, id int64) (*Discussion, error)
	GetBySlug(ctx context.Context, slug string) (*Discussion, error)
	Create(ctx context.Context, who identity.Identity, req CreateDiscussionRequest) (*Discussion, error)
	// Posts returns the stream oldest first, or newest first when desc is set
	Posts(ctx context.Context, discussionID int64, desc bool) ([]Post, error)
	CreatePost(ctx context.Context, who identity.Identity, discussionID int64, req CreatePostRequest, img *Image) (*Post, error)
}

type service struct {
	repo   Repository
	cache  *querycache.Cache
	events realtime.Publisher
	store  storage.Service
	log    *slog.Logger
	now    func() time.Time
}

// NewService wires the collaborators. events and store may be nil.
func NewService(repo Repository, cache *querycache.Cache, events realtime.Publisher, store storage.Service, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, cache: cache, events: events, store: store, log: log, now: time.Now}
}

func (s *service) List(ctx context.Context) ([]Discussion, error) {
	return querycache.Load(ctx, s.cache, listKey, s.repo.List)
}

func (s *service) Get(ctx context.Context, id int64) (*Discussion, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Discussion, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *service) Create(ctx context.Context, who identity.Identity, req CreateDiscussionRequest) (*Discussion, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	base := slug.Make(name)
	if base == "" {
		base = "discussion"
	}

	d := Discussion{Name: name, Description: strings.TrimSpace(req.Description), UserID: who.UserID}
	for i := 1; i <= maxSlugAttempts; i++ {
		d.Slug = base
		if i > 1 {
			d.Slug = fmt.Sprintf("%s-%d", base, i)
		}
		created, err := s.repo.Create(ctx, d)
		if errors.Is(err, errSlugTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := s.cache.Invalidate(ctx, listKey); err != nil {
			s.log.Warn("Failed to invalidate discussion list", "error", err)
		}
		return created, nil
	}
	return nil, ErrSlugExhausted
}

func (s *service) Posts(ctx context.Context, discussionID int64, desc bool) ([]Post, error) {
	posts, err := querycache.Load(ctx, s.cache, PostsKey(discussionID), func(ctx context.Context) ([]Post, error) {
		return s.repo.ListPosts(ctx, discussionID)
	})
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].ContentHTML = markup.Render(posts[i].Content)
	}
	if desc {
		slices.Reverse(posts)
	}
	return posts, nil
}

func (s *service) CreatePost(ctx context.Context, who identity.Identity, discussionID int64, req CreatePostRequest, img *Image) (*Post, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrContentRequired
	}

	in := NewPost{
		DiscussionID: discussionID,
		Title:        strings.TrimSpace(req.Title),
		Content:      content,
		UserID:       who.UserID,
		Author:       who.DisplayName(),
	}
	var imageKey string
	if img != nil {
		if s.store == nil {
			return nil, errors.New("image uploads are not configured")
		}
		if err := storage.ValidateImage(img.Filename, img.ContentType, int64(len(img.Data))); err != nil {
			return nil, err
		}
		title := in.Title
		if title == "" {
			title = "post"
		}
		imageKey = storage.ObjectKey("discussion-posts/", title, img.Filename, s.now())
		url, err := s.store.Upload(ctx, imageKey, img.ContentType, img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		in.ImageURL = url
	}

	p, err := s.repo.CreatePost(ctx, in)
	if err != nil {
		if imageKey != "" {
			if derr := s.store.Delete(ctx, imageKey); derr != nil {
				s.log.Warn("Failed to delete orphaned image", "key", imageKey, "error", derr)
			}
		}
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, PostsKey(discussionID)); err != nil {
		s.log.Warn("Failed to invalidate posts", "discussion_id", discussionID, "error", err)
	}
	s.announce(ctx, p)
	return p, nil
}

func (s *service) announce(ctx context.Context, p *Post) {
	if s.events == nil {
		return
	}
	ev, err := realtime.NewEvent(Key(p.DiscussionID), EventPostCreated, map[string]int64{
		"discussion_id": p.DiscussionID,
		"post_id":       p.ID,
	})
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("Failed to publish post event", "post_id", p.ID, "error", err)
	}
}
