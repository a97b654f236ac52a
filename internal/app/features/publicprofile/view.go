// internal/app/features/publicprofile/view.go
package publicprofile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// publicView is what visitors see. Account fields (role, auth, moderation,
// blocked list) never leave the server through this endpoint.
type publicView struct {
	ID         string                 `json:"id"`
	Username   string                 `json:"username,omitempty"`
	FullName   string                 `json:"full_name"`
	PhotoURL   string                 `json:"photo_url,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Company    string                 `json:"company,omitempty"`
	Location   string                 `json:"location,omitempty"`
	Bio        string                 `json:"bio,omitempty"`
	Email      string                 `json:"email,omitempty"`
	Phone      string                 `json:"phone,omitempty"`
	Website    string                 `json:"website,omitempty"`
	Links      []models.Link          `json:"links"`
	Portfolio  []models.PortfolioItem `json:"portfolio"`
	Features   models.PlanFeatures    `json:"features"`
	HasPrivate bool                   `json:"has_private"`
	IsOwner    bool                   `json:"is_owner"`
}

func toView(u *models.User) publicView {
	v := publicView{
		ID:        u.ID.Hex(),
		Username:  u.Username,
		FullName:  u.FullName,
		PhotoURL:  u.PhotoURL,
		Title:     u.Title,
		Company:   u.Company,
		Location:  u.Location,
		Bio:       u.Bio,
		Email:     u.Email,
		Phone:     u.Phone,
		Website:   u.Website,
		Links:     u.Links,
		Portfolio: u.Portfolio,
	}
	if v.Links == nil {
		v.Links = []models.Link{}
	}
	if v.Portfolio == nil {
		v.Portfolio = []models.PortfolioItem{}
	}
	return v
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/u/{username}, GET /api/p/{id}                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeByUsername(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	name := chi.URLParam(r, "username")
	u, ok := h.check(w, r, func() (*models.User, error) { return h.Users.GetByUsername(ctx, name) })
	if !ok {
		return
	}
	h.serveView(ctx, w, r, u)
}

func (h *Handler) ServeByID(w http.ResponseWriter, r *http.Request) {
	u, ok := h.viewable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	h.serveView(ctx, w, r, u)
}

func (h *Handler) serveView(ctx context.Context, w http.ResponseWriter, r *http.Request, u *models.User) {
	v := toView(u)
	v.IsOwner = profilepolicy.IsOwner(r, u)

	_, features, err := h.Plans.Entitlements(ctx, u.PlanID)
	if err != nil {
		respond.ServerError(w, r, h.Log, "load plan entitlements failed", err)
		return
	}
	v.Features = features
	if features.PrivateContent {
		pc, err := h.Private.Get(ctx, u.ID)
		switch {
		case err == nil:
			v.HasPrivate = pc.HasPIN() && len(pc.Items) > 0
		case !errors.Is(err, privatestore.ErrNotFound):
			h.Log.Warn("load private content flag failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}

	if !v.IsOwner {
		h.recordQuietly(ctx, r, models.Interaction{OwnerID: u.ID, Type: models.InteractionView})
	}
	respond.OK(w, r, v)
}
