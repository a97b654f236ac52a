package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
)

type privateResponse struct {
	Items  []models.PrivateItem `json:"items"`
	HasPIN bool                 `json:"has_pin"`
}

type privateItemRequest struct {
	Label string `json:"label" validate:"required,maxgraphemes=60"`
	Value string `json:"value" validate:"required,maxgraphemes=200"`
}

type privateRequest struct {
	Items []privateItemRequest `json:"items" validate:"max=50,dive"`
}

type pinRequest struct {
	PIN string `json:"pin" validate:"omitempty,pin"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/me/private                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePrivate(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pc, err := h.Private.Get(ctx, id)
	if errors.Is(err, privatestore.ErrNotFound) {
		respond.OK(w, r, privateResponse{Items: []models.PrivateItem{}})
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load private content failed", err)
		return
	}
	respond.OK(w, r, privateResponse{Items: pc.Items, HasPIN: pc.HasPIN()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/me/private                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePrivateUpdate(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req privateRequest
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
	if !plan.Features.PrivateContent {
		respond.Error(w, r, http.StatusForbidden, "your plan does not include private content")
		return
	}
	if err := profilepolicy.CheckLimits(plan.Limits, 0, 0, len(req.Items)); err != nil {
		respond.Fail(w, r, h.Log, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}

	items := make([]models.PrivateItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.PrivateItem{Label: it.Label, Value: it.Value})
	}
	if err := h.Private.SaveItems(ctx, id, items); err != nil {
		respond.ServerError(w, r, h.Log, "save private content failed", err)
		return
	}

	pc, err := h.Private.Get(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "reload private content failed", err)
		return
	}
	respond.OK(w, r, privateResponse{Items: pc.Items, HasPIN: pc.HasPIN()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/me/private/pin                                                      |
| An empty pin removes it.                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSetPIN(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req pinRequest
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

	err := h.Private.SetPIN(ctx, id, req.PIN)
	if errors.Is(err, privatestore.ErrBadPIN) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "set pin failed", err)
		return
	}
	respond.NoContent(w)
}
