package storage

import (
	"bytes"
	"context"
	"fmt"

	storagego "github.com/supabase-community/storage-go"
)

// Supabase stores objects in a public Supabase Storage bucket
type Supabase struct {
	client  *storagego.Client
	baseURL string
	bucket  string
}

// NewSupabase talks to <SupabaseURL>/storage/v1 with the service key
func NewSupabase(cfg Config) *Supabase {
	return &Supabase{
		client:  storagego.NewClient(cfg.SupabaseURL+"/storage/v1", cfg.SupabaseKey, nil),
		baseURL: cfg.SupabaseURL,
		bucket:  cfg.Bucket,
	}
}

// The storage-go client takes no context; calls are bounded by its HTTP client.

func (s *Supabase) Upload(_ context.Context, key, contentType string, data []byte) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storagego.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *Supabase) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, escapeKey(key))
}

func (s *Supabase) Health(_ context.Context) error {
	if _, err := s.client.GetBucket(s.bucket); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
