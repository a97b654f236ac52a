// internal/app/features/profile/handler.go
package profile

import (
	"net/http"

	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler owns the signed-in user's profile editor endpoints.
type Handler struct {
	Users        *userstore.Store
	Usernames    *usernames.Store
	Plans        *planstore.Store
	Private      *privatestore.Store
	Cards        *cardstore.Store
	Interactions *interactionstore.Store
	Orders       *orderstore.Store
	Files        blobstore.Store
	SessionMgr   *auth.SessionManager
	AuditLog     *auditlog.Logger
	Log          *zap.Logger
}

// Deps groups the stores NewHandler needs.
type Deps struct {
	Users        *userstore.Store
	Usernames    *usernames.Store
	Plans        *planstore.Store
	Private      *privatestore.Store
	Cards        *cardstore.Store
	Interactions *interactionstore.Store
	Orders       *orderstore.Store
	Files        blobstore.Store
}

// NewHandler constructs a profile Handler.
func NewHandler(d Deps, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        d.Users,
		Usernames:    d.Usernames,
		Plans:        d.Plans,
		Private:      d.Private,
		Cards:        d.Cards,
		Interactions: d.Interactions,
		Orders:       d.Orders,
		Files:        d.Files,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Log:          logger,
	}
}

// caller returns the signed-in user's id and role, answering 401 when
// there is none.
func caller(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, string, bool) {
	role, _, id, ok := authz.UserCtx(r)
	if !ok {
		respond.Unauthorized(w, r)
		return primitive.NilObjectID, "", false
	}
	return id, role, true
}
