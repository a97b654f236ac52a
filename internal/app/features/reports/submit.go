// internal/app/features/reports/submit.go
package reports

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/reportpolicy"
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type submitRequest struct {
	ReportedUserID string   `json:"reported_user_id" validate:"required,len=24,hexadecimal"`
	Reasons        []string `json:"reasons" validate:"required,min=1,max=6"`
	Description    string   `json:"description" validate:"maxgraphemes=2000"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/reports                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	_, _, reporter, ok := authz.UserCtx(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	var req submitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	target, err := primitive.ObjectIDFromHex(req.ReportedUserID)
	if err != nil {
		respond.Invalid(w, r, errors.New("reported_user_id is not a valid id"))
		return
	}
	if !reportpolicy.CanSubmit(r, target) {
		respond.Error(w, r, http.StatusBadRequest, reportstore.ErrSelf.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Users.GetByID(ctx, target); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			respond.NotFound(w, r)
			return
		}
		respond.ServerError(w, r, h.Log, "load reported user failed", err)
		return
	}

	rep, err := h.Reports.Submit(ctx, reporter, target, req.Reasons, req.Description)
	switch {
	case errors.Is(err, reportstore.ErrSelf), errors.Is(err, reportstore.ErrBadReason):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, reportstore.ErrDuplicate):
		respond.Error(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "submit report failed", err)
		return
	}
	h.Log.Info("report submitted", zap.String("report_id", rep.ID), zap.Strings("reasons", rep.Reasons))
	respond.Created(w, r, rep)
}
