package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	MaxImageSize      = 10 << 20
	MaxFilenameLength = 255
)

var (
	ErrImageTooLarge   = errors.New("image exceeds 10 MiB")
	ErrImageType       = errors.New("image must be jpeg, png, gif or webp")
	ErrInvalidFilename = errors.New("invalid filename")
)

// AllowedImageTypes maps accepted content types to their usual extensions
var AllowedImageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// ValidateImage checks an upload before it reaches the store
func ValidateImage(filename, contentType string, size int64) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	exts, ok := AllowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return ErrImageType
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if e == ext {
			return nil
		}
	}
	return ErrImageType
}

func validateFilename(filename string) error {
	switch {
	case filename == "":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case len(filename) > MaxFilenameLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidFilename, MaxFilenameLength)
	case strings.Contains(filename, ".."), strings.ContainsAny(filename, `/\`):
		return fmt.Errorf("%w: contains path characters", ErrInvalidFilename)
	case filepath.Ext(filename) == "":
		return fmt.Errorf("%w: missing extension", ErrInvalidFilename)
	}
	return nil
}

// ObjectKey names an upload <prefix><slug(title)>-<unixmillis>-<filename>.
// The filename is slugged too, keeping its extension.
func ObjectKey(prefix, title, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if base == "" {
		base = "image"
	}
	name := slug.Make(title)
	if name == "" {
		name = "untitled"
	}
	return fmt.Sprintf("%s%s-%d-%s%s", prefix, name, now.UnixMilli(), base, ext)
}
