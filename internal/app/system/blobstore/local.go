package blobstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a directory and serves them from URLPrefix.
type Local struct {
	root      string
	urlPrefix string
}

// NewLocal creates the root directory if needed.
func NewLocal(root, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// GetFullPath maps key to a path on disk.
func (l *Local) GetFullPath(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(k)), nil
}

// Put writes r to a temp file and renames it into place so readers never
// see a partial object.
func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error {
	full, err := l.GetFullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// Delete removes the object. Missing objects are not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.GetFullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public path of key under URLPrefix.
func (l *Local) URL(_ context.Context, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return l.urlPrefix + "/" + k, nil
}

// PresignPut is not supported on local disk.
func (l *Local) PresignPut(context.Context, string, *PresignOptions) (string, error) {
	return "", ErrPresignUnsupported
}

// Handler serves stored files. Mount it at URLPrefix.
func (l *Local) Handler() http.Handler {
	fs := http.FileServer(http.Dir(l.root))
	return http.StripPrefix(l.urlPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No directory listings.
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	}))
}
