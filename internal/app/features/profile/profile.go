package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/limits"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// planInfo is the entitlement summary shown next to the editor.
type planInfo struct {
	ID       string              `json:"id,omitempty"`
	Limits   models.PlanLimits   `json:"limits"`
	Features models.PlanFeatures `json:"features"`
}

type profileResponse struct {
	User *models.User `json:"user"`
	Plan planInfo     `json:"plan"`
}

type linkRequest struct {
	Label string `json:"label" validate:"required,maxgraphemes=60"`
	URL   string `json:"url" validate:"required,http_url,max=2048"`
}

type portfolioRequest struct {
	Title       string `json:"title" validate:"required,maxgraphemes=100"`
	Description string `json:"description" validate:"maxgraphemes=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,max=2048"`
	LinkURL     string `json:"link_url" validate:"omitempty,http_url,max=2048"`
}

// profileRequest replaces every editable field. The photo is managed
// through the photo endpoints and is left as is.
type profileRequest struct {
	FullName  string             `json:"full_name" validate:"required,maxgraphemes=100"`
	Title     string             `json:"title" validate:"maxgraphemes=100"`
	Company   string             `json:"company" validate:"maxgraphemes=100"`
	Location  string             `json:"location" validate:"maxgraphemes=100"`
	Bio       string             `json:"bio" validate:"maxgraphemes=500"`
	Phone     string             `json:"phone" validate:"max=40"`
	Website   string             `json:"website" validate:"omitempty,http_url,max=2048"`
	Links     []linkRequest      `json:"links" validate:"max=50,dive"`
	Portfolio []portfolioRequest `json:"portfolio" validate:"max=50,dive"`
	IsPublic  bool               `json:"is_public"`
}

func (h *Handler) loadUser(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID) (*models.User, bool) {
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Unauthorized(w, r)
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load profile failed", err)
		return nil, false
	}
	return u, true
}

func (h *Handler) planFor(ctx context.Context, u *models.User) (planInfo, error) {
	limits, features, err := h.Plans.Entitlements(ctx, u.PlanID)
	if err != nil {
		return planInfo{}, err
	}
	return planInfo{ID: u.PlanID, Limits: limits, Features: features}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/me                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.loadUser(ctx, w, r, id)
	if !ok {
		return
	}
	plan, err := h.planFor(ctx, u)
	if err != nil {
		respond.ServerError(w, r, h.Log, "load plan entitlements failed", err)
		return
	}
	respond.OK(w, r, profileResponse{User: u, Plan: plan})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/me                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.loadUser(ctx, w, r, id)
	if !ok {
		return
	}
	plan, err := h.planFor(ctx, u)
	if err != nil {
		respond.ServerError(w, r, h.Log, "load plan entitlements failed", err)
		return
	}
	// Contacts are edited on their own endpoint; only links and portfolio
	// are counted here.
	if err := profilepolicy.CheckLimits(plan.Limits, len(req.Links), len(req.Portfolio), 0); err != nil {
		respond.Fail(w, r, h.Log, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}

	upd := userstore.ProfileUpdate{
		FullName:  req.FullName,
		Title:     req.Title,
		Company:   req.Company,
		Location:  req.Location,
		Bio:       req.Bio,
		Phone:     req.Phone,
		Website:   req.Website,
		PhotoURL:  u.PhotoURL,
		IsPublic:  req.IsPublic,
		Links:     make([]models.Link, 0, len(req.Links)),
		Portfolio: make([]models.PortfolioItem, 0, len(req.Portfolio)),
	}
	for _, l := range req.Links {
		upd.Links = append(upd.Links, models.Link{Label: l.Label, URL: l.URL})
	}
	for _, p := range req.Portfolio {
		upd.Portfolio = append(upd.Portfolio, models.PortfolioItem{
			Title:       p.Title,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			LinkURL:     p.LinkURL,
		})
	}

	updated, err := h.Users.UpdateProfile(ctx, id, upd)
	if err != nil {
		respond.ServerError(w, r, h.Log, "update profile failed", err)
		return
	}
	respond.OK(w, r, profileResponse{User: updated, Plan: plan})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/me/photo, DELETE /api/me/photo                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type photoResponse struct {
	PhotoURL string `json:"photo_url"`
}

func (h *Handler) HandlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUploadBody)
	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Invalid(w, r, errors.New(`multipart field "file" is required`))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	stored, err := blobstore.PutImage(ctx, h.Files, blobstore.KindPhoto, id.Hex(), file)
	switch {
	case errors.Is(err, blobstore.ErrTooLarge):
		respond.Fail(w, r, h.Log, http.StatusRequestEntityTooLarge, err.Error(), err)
		return
	case errors.Is(err, blobstore.ErrNotImage):
		respond.Fail(w, r, h.Log, http.StatusUnsupportedMediaType, err.Error(), err)
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "store photo failed", err)
		return
	}

	if err := h.Users.SetPhoto(ctx, id, stored.URL); err != nil {
		if derr := h.Files.Delete(ctx, stored.Key); derr != nil {
			h.Log.Warn("orphaned photo upload", zap.String("key", stored.Key), zap.Error(derr))
		}
		respond.ServerError(w, r, h.Log, "save photo url failed", err)
		return
	}
	respond.OK(w, r, photoResponse{PhotoURL: stored.URL})
}

func (h *Handler) HandlePhotoDelete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetPhoto(ctx, id, ""); err != nil {
		respond.ServerError(w, r, h.Log, "clear photo failed", err)
		return
	}
	respond.NoContent(w)
}
