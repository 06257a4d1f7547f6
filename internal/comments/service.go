package comments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"studybuddy/internal/groups"
	"studybuddy/internal/identity"
	"studybuddy/internal/notify"
	"studybuddy/internal/querycache"
)

// MaxContentLength bounds a comment body in characters
const MaxContentLength = 5000

var (
	ErrUnauthenticated = errors.New("you must be logged in to comment")
	ErrEmptyContent    = errors.New("comment cannot be empty")
	ErrContentTooLong  = fmt.Errorf("comment exceeds %d characters", MaxContentLength)
	ErrInvalidParent   = errors.New("parent comment does not belong to this post")
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrForbidden       = errors.New("only the author can delete this comment")
	ErrCreateFailed    = errors.New("failed to post comment")
)

// CacheKey is the query cache key of a post's comment list
func CacheKey(postID int64) string {
	return fmt.Sprintf("comments:post:%d", postID)
}

// Cache is the part of the query cache the service uses
type Cache interface {
	Fetch(ctx context.Context, key string, fetch querycache.FetchFunc) ([]byte, error)
	querycache.Invalidator
}

// Service is the comment thread use cases. Every mutation invalidates the
// post's cached list so the next Thread call refetches and rebuilds.
type Service interface {
	Thread(ctx context.Context, postID int64) (*Thread, error)
	Submit(ctx context.Context, who identity.Identity, postID int64, req CreateCommentRequest) (*Comment, error)
	Delete(ctx context.Context, who identity.Identity, commentID int64) (int64, error)
}

type service struct {
	store    Store
	cache    Cache
	notifier notify.Publisher
	log      *slog.Logger
}

// NewService wires the store and the cache. notifier may be nil.
func NewService(store Store, cache Cache, notifier notify.Publisher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, cache: cache, notifier: notifier, log: log}
}

// Thread fetches the post's comments through the cache and builds the forest
func (s *service) Thread(ctx context.Context, postID int64) (*Thread, error) {
	data, err := s.cache.Fetch(ctx, CacheKey(postID), func(ctx context.Context) ([]byte, error) {
		list, err := s.store.ListByPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(list)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load comments for post %d: %w", postID, err)
	}

	var list []Comment
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode comments for post %d: %w", postID, err)
	}

	return &Thread{
		PostID:   postID,
		Count:    len(list),
		Comments: BuildTree(list),
	}, nil
}

// Submit inserts a top-level comment or, with ParentCommentID set, a reply
func (s *service) Submit(ctx context.Context, who identity.Identity, postID int64, req CreateCommentRequest) (*Comment, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	var parent *Comment
	if req.ParentCommentID != nil {
		p, err := s.store.GetByID(ctx, *req.ParentCommentID)
		if errors.Is(err, ErrCommentNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
		}
		if p.PostID != postID {
			return nil, ErrInvalidParent
		}
		parent = p
	}

	created, err := s.store.Create(ctx, NewComment{
		PostID:          postID,
		ParentCommentID: req.ParentCommentID,
		Content:         content,
		UserID:          who.UserID,
		Author:          who.DisplayName(),
	})
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	s.invalidate(ctx, postID)

	if parent != nil && parent.UserID != who.UserID {
		s.notifyReply(ctx, *parent, *created)
	}
	return created, nil
}

// Delete removes the viewer's own comment and returns the post it belonged to.
// Replies are left in place and fall out of the next rebuild.
func (s *service) Delete(ctx context.Context, who identity.Identity, commentID int64) (int64, error) {
	if !who.Authenticated() {
		return 0, ErrUnauthenticated
	}

	c, err := s.store.GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if c.UserID != who.UserID {
		return 0, ErrForbidden
	}

	deleted, err := s.store.DeleteByAuthor(ctx, commentID, who.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comment: %w", err)
	}
	if !deleted {
		return 0, ErrCommentNotFound
	}

	s.invalidate(ctx, c.PostID)
	return c.PostID, nil
}

func (s *service) invalidate(ctx context.Context, postID int64) {
	// the group board shows comment counts
	if err := s.cache.Invalidate(ctx, CacheKey(postID), groups.ListKey, groups.ItemKey(postID)); err != nil {
		s.log.Warn("Failed to invalidate comment cache", "post_id", postID, "error", err)
	}
}

// notifyReply runs in the background; a lost notification never fails the reply
func (s *service) notifyReply(ctx context.Context, parent, reply Comment) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		email, err := s.store.AuthorEmail(ctx, parent.UserID)
		if err != nil || email == "" {
			if err != nil {
				s.log.Warn("Skipping reply notification", "comment_id", reply.ID, "error", err)
			}
			return
		}

		ev := notify.NewEvent(notify.TypeCommentReply, email, map[string]any{
			"post_id":           reply.PostID,
			"comment_id":        reply.ID,
			"parent_comment_id": parent.ID,
			"author":            reply.Author,
			"excerpt":           excerpt(reply.Content, 140),
		})
		if err := s.notifier.Publish(ctx, ev); err != nil {
			s.log.Warn("Failed to publish reply notification", "comment_id", reply.ID, "error", err)
		}
	}()
}

func excerpt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
