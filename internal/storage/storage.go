// Package storage keeps uploaded images in an object store. Two drivers
// exist: an S3 compatible one (MinIO in development) and Supabase Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"studybuddy/internal/config"
)

// DefaultBucket holds group and discussion images
const DefaultBucket = "post-images"

const (
	DriverS3       = "s3"
	DriverSupabase = "supabase"
)

var ErrEmptyKey = errors.New("object key cannot be empty")

// Service defines the interface for storage operations
type Service interface {
	// Upload stores data under key and returns its public URL
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// PublicURL is where browsers load key from
	PublicURL(key string) string

	// Health checks if the store is reachable
	Health(ctx context.Context) error
}

// Config selects and configures a driver
type Config struct {
	Driver string
	Bucket string

	// s3
	Endpoint       string
	PublicEndpoint string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool

	// supabase
	SupabaseURL string
	SupabaseKey string
}

// LoadConfig reads STORAGE_DRIVER and the driver's variables
func LoadConfig() (Config, error) {
	cfg := Config{
		Driver: strings.ToLower(config.GetEnvOrDefault("STORAGE_DRIVER", DriverS3)),
		Bucket: config.GetEnvOrDefault("STORAGE_BUCKET", DefaultBucket),
	}

	switch cfg.Driver {
	case DriverS3:
		if err := config.ValidateEnv("S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY"); err != nil {
			return cfg, err
		}
		cfg.Endpoint = config.GetEnvOrDefault("S3_ENDPOINT", "")
		cfg.PublicEndpoint = config.GetEnvOrDefault("S3_PUBLIC_ENDPOINT", cfg.Endpoint)
		cfg.Region = config.GetEnvOrDefault("S3_REGION", "us-east-1")
		cfg.AccessKey = config.GetEnvOrDefault("S3_ACCESS_KEY", "")
		cfg.SecretKey = config.GetEnvOrDefault("S3_SECRET_KEY", "")
		cfg.UseSSL = config.GetEnvBool("S3_USE_SSL", false)
	case DriverSupabase:
		if err := config.ValidateEnv("SUPABASE_URL", "SUPABASE_KEY"); err != nil {
			return cfg, err
		}
		cfg.SupabaseURL = strings.TrimRight(config.GetEnvOrDefault("SUPABASE_URL", ""), "/")
		cfg.SupabaseKey = config.GetEnvOrDefault("SUPABASE_KEY", "")
	default:
		return cfg, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return cfg, nil
}

// New builds the driver cfg names
func New(ctx context.Context, cfg Config) (Service, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3(ctx, cfg)
	case DriverSupabase:
		return NewSupabase(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func endpointURL(host string, ssl bool) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	if ssl {
		return "https://" + host
	}
	return "http://" + host
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
