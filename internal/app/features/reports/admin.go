// internal/app/features/reports/admin.go
package reports

import (
	"context"
	"errors"
	"net/http"
	"strings"

	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func validStatus(s string) bool {
	switch s {
	case models.ReportPending, models.ReportResolved, models.ReportDismissed:
		return true
	}
	return false
}

// ServeList handles GET /api/admin/reports?status=pending.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(query.Get(r, "status"))
	if status != "" && !validStatus(status) {
		respond.Error(w, r, http.StatusBadRequest, "unknown report status")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Reports.List(ctx, status, paging.ParseRequest(r))
	if errors.Is(err, paging.ErrBadCursor) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "list reports failed", err)
		return
	}
	if page.Fallback {
		h.Log.Warn("report list served without status index", zap.String("status", status))
	}
	respond.OK(w, r, page)
}

type reportDetail struct {
	Report       *models.Report  `json:"report"`
	ReportedUser *models.User    `json:"reported_user,omitempty"`
	Others       []models.Report `json:"other_reports"`
}

// ServeReport handles GET /api/admin/reports/{id} with the reported user
// and every other report filed against them.
func (h *Handler) ServeReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.Get(ctx, id)
	if errors.Is(err, reportstore.ErrNotFound) {
		respond.NotFound(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load report failed", err)
		return
	}

	out := reportDetail{Report: rep, Others: []models.Report{}}
	u, err := h.Users.GetByID(ctx, rep.ReportedUserID)
	switch {
	case err == nil:
		out.ReportedUser = u
	case !errors.Is(err, userstore.ErrNotFound):
		respond.ServerError(w, r, h.Log, "load reported user failed", err)
		return
	}

	all, err := h.Reports.ListAgainst(ctx, rep.ReportedUserID)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list reports against user failed", err)
		return
	}
	for _, o := range all {
		if o.ID != rep.ID {
			out.Others = append(out.Others, o)
		}
	}
	respond.OK(w, r, out)
}

type closeRequest struct {
	Status string `json:"status" validate:"required,oneof=resolved dismissed"`
	Note   string `json:"note" validate:"maxgraphemes=1000"`
}

// HandleClose handles POST /api/admin/reports/{id}/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.UserID(r)
	id := chi.URLParam(r, "id")

	var req closeRequest
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

	rep, err := h.Reports.Close(ctx, id, req.Status, req.Note, actor)
	switch {
	case errors.Is(err, reportstore.ErrNotFound):
		respond.NotFound(w, r)
		return
	case errors.Is(err, reportstore.ErrBadStatus):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, reportstore.ErrClosed):
		respond.Error(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "close report failed", err)
		return
	}
	h.AuditLog.ReportClosed(ctx, r, actor, rep.ReportedUserID, rep.ID, rep.Status)
	respond.OK(w, r, rep)
}
