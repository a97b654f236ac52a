package uploads_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/cardhub/internal/app/features/uploads"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.uber.org/zap"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func uploadRequest(t *testing.T, kind string, data []byte, user testutil.TestUser) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if kind != "" {
		_ = mw.WriteField("kind", kind)
	}
	fw, err := mw.CreateFormFile("file", "upload.bin")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest("POST", "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.WithUser(req, user)
}

func TestHandleUpload(t *testing.T) {
	root := t.TempDir()
	files, err := blobstore.NewLocal(root, "/files")
	if err != nil {
		t.Fatal(err)
	}
	h := uploads.NewHandler(files, zap.NewNop())
	user := testutil.RegularUser()

	tests := []struct {
		name string
		kind string
		data []byte
		want int
	}{
		{"portfolio default", "", pngBytes, http.StatusCreated},
		{"logo", "logo", pngBytes, http.StatusCreated},
		{"unknown kind", "banner", pngBytes, http.StatusBadRequest},
		{"not an image", "photo", []byte("hello"), http.StatusUnsupportedMediaType},
		{"too large", "photo", append(append([]byte{}, pngBytes...), make([]byte, blobstore.MaxImageSize)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleUpload(rec, uploadRequest(t, tt.kind, tt.data, user))
			rec.AssertStatus(t, tt.want)
			if tt.want != http.StatusCreated {
				return
			}
			var got blobstore.Stored
			rec.DecodeJSON(t, &got)
			kind := tt.kind
			if kind == "" {
				kind = blobstore.KindPortfolio
			}
			if !strings.HasPrefix(got.Key, kind+"/"+user.ID+"/") || !strings.HasSuffix(got.Key, ".png") {
				t.Errorf("key = %q", got.Key)
			}
			if got.URL != "/files/"+got.Key || got.ContentType != "image/png" {
				t.Errorf("stored = %+v", got)
			}
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(got.Key))); err != nil {
				t.Errorf("file not on disk: %v", err)
			}
		})
	}
}

func TestHandleUploadSignedOut(t *testing.T) {
	files, _ := blobstore.NewLocal(t.TempDir(), "/files")
	h := uploads.NewHandler(files, zap.NewNop())
	rec := testutil.NewRecorder()
	h.HandleUpload(rec, httptest.NewRequest("POST", "/api/uploads", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

type presigner struct {
	*blobstore.Local
	keys []string
}

func (p *presigner) PresignPut(_ context.Context, key string, opts *blobstore.PresignOptions) (string, error) {
	p.keys = append(p.keys, key)
	return "https://bucket.example.com/" + key + "?ct=" + opts.ContentType, nil
}

func TestHandlePresign(t *testing.T) {
	local, _ := blobstore.NewLocal(t.TempDir(), "/files")
	user := testutil.RegularUser()

	rec := testutil.NewRecorder()
	uploads.NewHandler(local, zap.NewNop()).HandlePresign(rec,
		testutil.NewAuthenticatedJSONRequest("POST", "/api/uploads/presign", user, map[string]string{"content_type": "image/png"}))
	rec.AssertStatus(t, http.StatusNotImplemented)

	p := &presigner{Local: local}
	h := uploads.NewHandler(p, zap.NewNop())
	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"ok", map[string]string{"kind": "photo", "content_type": "image/webp"}, http.StatusOK},
		{"missing type", map[string]string{"kind": "photo"}, http.StatusBadRequest},
		{"pdf", map[string]string{"content_type": "application/pdf"}, http.StatusUnsupportedMediaType},
		{"bad kind", map[string]string{"kind": "x", "content_type": "image/png"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandlePresign(rec, testutil.NewAuthenticatedJSONRequest("POST", "/api/uploads/presign", user, tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}
	if len(p.keys) != 1 || !strings.HasPrefix(p.keys[0], "photo/"+user.ID+"/") || !strings.HasSuffix(p.keys[0], ".webp") {
		t.Errorf("presigned keys = %v", p.keys)
	}
}
