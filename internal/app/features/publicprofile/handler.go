// internal/app/features/publicprofile/handler.go
package publicprofile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/notify"
	"github.com/dalemusser/cardhub/internal/app/system/pinlock"
	"github.com/dalemusser/cardhub/internal/app/system/ratelimit"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves public profiles, card redirects, vCards, PIN unlocks and
// visitor messages.
type Handler struct {
	Users        *userstore.Store
	Plans        *planstore.Store
	Private      *privatestore.Store
	Cards        *cardstore.Store
	Interactions *interactionstore.Store
	Hub          notify.Hub
	Unlocks      *ratelimit.UnlockLimiter
	Tokens       *pinlock.Signer
	Log          *zap.Logger

	// PublicBaseURL is the web app origin card redirects point at.
	PublicBaseURL string
}

// Deps groups the stores and services the handler needs.
type Deps struct {
	Users        *userstore.Store
	Plans        *planstore.Store
	Private      *privatestore.Store
	Cards        *cardstore.Store
	Interactions *interactionstore.Store
	Hub          notify.Hub
	Unlocks      *ratelimit.UnlockLimiter
	Tokens       *pinlock.Signer
}

func NewHandler(d Deps, publicBaseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:         d.Users,
		Plans:         d.Plans,
		Private:       d.Private,
		Cards:         d.Cards,
		Interactions:  d.Interactions,
		Hub:           d.Hub,
		Unlocks:       d.Unlocks,
		Tokens:        d.Tokens,
		Log:           logger,
		PublicBaseURL: publicBaseURL,
	}
}

// viewable loads the profile addressed by the {id} URL param and checks
// visibility. Anything the caller may not see is reported as 404.
func (h *Handler) viewable(w http.ResponseWriter, r *http.Request, id string) (*models.User, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		respond.NotFound(w, r)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	return h.check(w, r, func() (*models.User, error) { return h.Users.GetByID(ctx, oid) })
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, load func() (*models.User, error)) (*models.User, bool) {
	u, err := load()
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load profile failed", err)
		return nil, false
	}
	if !profilepolicy.CanView(r, u) {
		respond.NotFound(w, r)
		return nil, false
	}
	return u, true
}

// record stores an interaction for owner and fans it out to open streams.
// Publish failures are logged only; the stored row is what the panel reads.
func (h *Handler) record(ctx context.Context, r *http.Request, in models.Interaction) (models.Interaction, error) {
	if _, name, actor, ok := authz.UserCtx(r); ok {
		in.ActorID = &actor
		if in.ActorName == "" {
			in.ActorName = name
		}
	}
	saved, err := h.Interactions.Record(ctx, in)
	if err != nil {
		return models.Interaction{}, err
	}
	if h.Hub != nil {
		if err := h.Hub.Publish(ctx, saved); err != nil {
			h.Log.Warn("publish interaction failed",
				zap.String("owner_id", saved.OwnerID.Hex()),
				zap.String("type", saved.Type),
				zap.Error(err))
		}
	}
	return saved, nil
}

// recordQuietly records a side-effect interaction; failures never change
// the response.
func (h *Handler) recordQuietly(ctx context.Context, r *http.Request, in models.Interaction) {
	if _, err := h.record(ctx, r, in); err != nil {
		h.Log.Warn("record interaction failed",
			zap.String("owner_id", in.OwnerID.Hex()),
			zap.String("type", in.Type),
			zap.Error(err))
	}
}
