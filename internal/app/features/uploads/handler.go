// internal/app/features/uploads/handler.go
package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/limits"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"go.uber.org/zap"
)

// presignTTL bounds how long a direct upload URL stays valid.
const presignTTL = 15 * time.Minute

// Handler accepts image uploads for profile photos, portfolio items and
// logos. The returned URL is stored by whichever editor asked for it.
type Handler struct {
	Files blobstore.Store
	Log   *zap.Logger
}

func NewHandler(files blobstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Files: files, Log: logger}
}

func kindOf(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return blobstore.KindPortfolio
	}
	return s
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/uploads  (multipart: kind, file)                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUploadBody)
	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Invalid(w, r, errors.New(`multipart field "file" is required`))
		return
	}
	defer file.Close()

	kind := kindOf(r.FormValue("kind"))
	if !blobstore.IsValidKind(kind) {
		respond.Invalid(w, r, errors.New("kind must be photo, portfolio or logo"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stored, err := blobstore.PutImage(ctx, h.Files, kind, uid.Hex(), file)
	switch {
	case errors.Is(err, blobstore.ErrTooLarge):
		respond.Fail(w, r, h.Log, http.StatusRequestEntityTooLarge, err.Error(), err)
		return
	case errors.Is(err, blobstore.ErrNotImage):
		respond.Fail(w, r, h.Log, http.StatusUnsupportedMediaType, err.Error(), err)
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "store upload failed", err)
		return
	}
	h.Log.Debug("upload stored",
		zap.String("key", stored.Key),
		zap.String("content_type", stored.ContentType),
		zap.Int64("size", stored.Size))
	respond.Created(w, r, stored)
}

type presignRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type" validate:"required"`
}

type presignResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/uploads/presign                                                    |
| Direct-to-bucket uploads. Only the s3 backend supports this.                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	uid, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	var req presignRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	kind := kindOf(req.Kind)
	if !blobstore.IsValidKind(kind) {
		respond.Invalid(w, r, errors.New("kind must be photo, portfolio or logo"))
		return
	}
	ext, ok := imageExt(req.ContentType)
	if !ok {
		respond.Error(w, r, http.StatusUnsupportedMediaType, blobstore.ErrNotImage.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	key := blobstore.Key(kind, uid.Hex(), ext)
	uploadURL, err := h.Files.PresignPut(ctx, key, &blobstore.PresignOptions{Expires: presignTTL, ContentType: req.ContentType})
	if errors.Is(err, blobstore.ErrPresignUnsupported) {
		respond.Error(w, r, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "presign upload failed", err)
		return
	}
	url, err := h.Files.URL(ctx, key)
	if err != nil {
		respond.ServerError(w, r, h.Log, "resolve upload url failed", err)
		return
	}
	respond.OK(w, r, presignResponse{
		Key:       key,
		UploadURL: uploadURL,
		URL:       url,
		ExpiresAt: time.Now().Add(presignTTL).UTC(),
	})
}

func imageExt(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/gif":
		return ".gif", true
	case "image/webp":
		return ".webp", true
	}
	return "", false
}
