// internal/app/features/content/handler.go
package content

import (
	"context"
	"errors"
	"net/http"
	"strings"

	contentstore "github.com/dalemusser/cardhub/internal/app/store/content"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the CMS documents (about, contact, faqs, store).
type Handler struct {
	Content  *contentstore.Store
	Plans    *planstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(content *contentstore.Store, plans *planstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Content: content, Plans: plans, AuditLog: audit, Log: logger}
}

// ServeContent handles GET /api/content/{slug}.
func (h *Handler) ServeContent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	doc, err := h.Content.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, contentstore.ErrNotFound) || errors.Is(err, contentstore.ErrBadSlug) {
		respond.NotFound(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load content failed", err)
		return
	}
	respond.OK(w, r, doc)
}

// ServeAll handles GET /api/admin/content.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	docs, err := h.Content.List(ctx)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list content failed", err)
		return
	}
	respond.OK(w, r, docs)
}

type productInput struct {
	ID            string `json:"id" validate:"required,max=64"`
	Name          string `json:"name" validate:"required,maxgraphemes=100"`
	PriceCents    int64  `json:"price_cents" validate:"gte=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha"`
	Description   string `json:"description" validate:"maxgraphemes=2000"`
	StripePriceID string `json:"stripe_price_id" validate:"max=255"`
}

type faqInput struct {
	Question string `json:"question" validate:"required,maxgraphemes=500"`
	Answer   string `json:"answer" validate:"required"`
}

type saveRequest struct {
	Title    string              `json:"title" validate:"maxgraphemes=200"`
	Body     string              `json:"body"`
	FAQs     []faqInput          `json:"faqs" validate:"max=100,dive"`
	Products []productInput      `json:"products" validate:"max=50,dive"`
	Contact  *models.ContactInfo `json:"contact"`
}

type saveResponse struct {
	Content models.SiteContent    `json:"content"`
	Sync    *planstore.SyncResult `json:"sync,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/admin/content/{slug}                                                |
| Saving "store" resyncs plans from its product list.                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !models.IsValidContentSlug(slug) {
		respond.NotFound(w, r)
		return
	}
	var req saveRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	doc, err := build(slug, req)
	if err != nil {
		respond.Invalid(w, r, err)
		return
	}
	_, name, actor, _ := authz.UserCtx(r)
	doc.UpdatedByID = &actor
	doc.UpdatedByName = name

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	saved, err := h.Content.Upsert(ctx, doc)
	if err != nil {
		respond.ServerError(w, r, h.Log, "save content failed", err)
		return
	}
	h.AuditLog.ContentUpdated(ctx, r, actor, slug)

	out := saveResponse{Content: saved}
	if slug == models.ContentStore {
		res, err := h.Plans.Sync(ctx, saved.Products)
		if err != nil {
			respond.ServerError(w, r, h.Log, "plan sync failed", err)
			return
		}
		h.AuditLog.PlansSynced(ctx, r, actor, int(res.Upserted), int(res.Deactivated))
		h.Log.Info("plans synced from store content",
			zap.Int64("upserted", res.Upserted),
			zap.Int64("updated", res.Updated),
			zap.Int64("deactivated", res.Deactivated))
		out.Sync = &res
	}
	respond.OK(w, r, out)
}

// build keeps only the fields meaningful for slug and sanitizes markup.
func build(slug string, req saveRequest) (models.SiteContent, error) {
	doc := models.SiteContent{
		Slug:  slug,
		Title: htmlsanitize.StripTags(strings.TrimSpace(req.Title)),
		Body:  htmlsanitize.Sanitize(req.Body),
	}
	switch slug {
	case models.ContentFAQs:
		for _, f := range req.FAQs {
			doc.FAQs = append(doc.FAQs, models.FAQ{
				Question: htmlsanitize.StripTags(strings.TrimSpace(f.Question)),
				Answer:   htmlsanitize.Sanitize(f.Answer),
			})
		}
	case models.ContentContact:
		if req.Contact != nil {
			c := *req.Contact
			c.Email = strings.TrimSpace(c.Email)
			c.Phone = strings.TrimSpace(c.Phone)
			c.Address = htmlsanitize.StripTags(c.Address)
			if c.Email != "" {
				if err := validate.Var(c.Email, "email"); err != nil {
					return doc, errors.New("contact email is not valid")
				}
			}
			doc.Contact = &c
		}
	case models.ContentStore:
		seen := make(map[string]bool, len(req.Products))
		for _, p := range req.Products {
			id := strings.TrimSpace(p.ID)
			if seen[id] {
				return doc, errors.New("duplicate product id " + id)
			}
			seen[id] = true
			doc.Products = append(doc.Products, models.StoreProduct{
				ID:            id,
				Name:          strings.TrimSpace(p.Name),
				PriceCents:    p.PriceCents,
				Currency:      strings.ToLower(p.Currency),
				Description:   htmlsanitize.StripTags(p.Description),
				StripePriceID: strings.TrimSpace(p.StripePriceID),
			})
		}
	}
	return doc, nil
}
