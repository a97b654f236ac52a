// Package blobstore stores uploaded images on local disk or in S3.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload kinds. Each kind gets its own key prefix.
const (
	KindPhoto     = "photo"
	KindPortfolio = "portfolio"
	KindLogo      = "logo"
)

// IsValidKind reports whether kind is a known upload kind.
func IsValidKind(kind string) bool {
	switch kind {
	case KindPhoto, KindPortfolio, KindLogo:
		return true
	}
	return false
}

var (
	// ErrPresignUnsupported is returned by backends that cannot hand out
	// direct upload URLs.
	ErrPresignUnsupported = errors.New("presigned uploads not supported by this storage backend")
	// ErrBadKey is returned for keys that escape the store root.
	ErrBadKey = errors.New("invalid object key")
)

// PutOptions describes an object being written.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// PresignOptions controls a presigned upload URL.
type PresignOptions struct {
	Expires     time.Duration
	ContentType string
}

// Store is a blob storage backend.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error
	Delete(ctx context.Context, key string) error
	// URL returns a URL clients can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
	// PresignPut returns a URL the client can PUT the object to directly.
	PresignPut(ctx context.Context, key string, opts *PresignOptions) (string, error)
}

// Key builds the object key for an upload: {kind}/{userID}/{uuid}{ext}.
func Key(kind, userID, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.NewString(), ext)
}

// cleanKey rejects keys that are absolute or contain parent references.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrBadKey
		}
	}
	return key, nil
}
