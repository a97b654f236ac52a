package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var (
	// ErrTooLarge is returned for uploads over MaxImageSize.
	ErrTooLarge = fmt.Errorf("file exceeds %d MiB", MaxImageSize>>20)
	// ErrNotImage is returned when the content is not an accepted image type.
	ErrNotImage = errors.New("file must be a JPEG, PNG, GIF or WebP image")
)

// ImageTypes are the content types PutImage accepts.
var ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// IsImageType reports whether contentType is an accepted image type.
func IsImageType(contentType string) bool {
	for _, t := range ImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Stored describes an object written by PutImage.
type Stored struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PutImage reads an image from r, checks its size and sniffed type and
// writes it under a fresh key for kind and userID. The declared content
// type of the upload is ignored.
func PutImage(ctx context.Context, s Store, kind, userID string, r io.Reader) (Stored, error) {
	if !IsValidKind(kind) {
		return Stored{}, fmt.Errorf("unknown upload kind %q", kind)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return Stored{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ct := mt.String()
	if !IsImageType(ct) {
		return Stored{}, ErrNotImage
	}

	key := Key(kind, userID, mt.Extension())
	if err := s.Put(ctx, key, bytes.NewReader(data), int64(len(data)), &PutOptions{
		ContentType:  ct,
		CacheControl: "public, max-age=31536000, immutable",
	}); err != nil {
		return Stored{}, fmt.Errorf("store upload: %w", err)
	}
	u, err := s.URL(ctx, key)
	if err != nil {
		return Stored{}, fmt.Errorf("resolve upload url: %w", err)
	}
	return Stored{Key: key, URL: u, ContentType: ct, Size: int64(len(data))}, nil
}
