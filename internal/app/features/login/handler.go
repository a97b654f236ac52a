// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/store/audit"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/firebaseauth"
	"github.com/dalemusser/cardhub/internal/app/system/normalize"
	"github.com/dalemusser/cardhub/internal/app/system/ratelimit"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves password and Firebase sign in, sign up and the current
// user endpoint.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Firebase   firebaseauth.Verifier // nil when Firebase sign in is not configured
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// BcryptCost is the cost used for new password hashes.
	BcryptCost int
}

func NewHandler(
	users *userstore.Store,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	firebase firebaseauth.Verifier,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Firebase:   firebase,
		AuditLog:   audit,
		Log:        logger,
		BcryptCost: bcrypt.DefaultCost,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Payloads                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type signupRequest struct {
	FullName string `json:"full_name" validate:"required,maxgraphemes=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type firebaseRequest struct {
	IDToken string `json:"id_token"`
}

// meResponse is returned by every endpoint that establishes a session.
type meResponse struct {
	User *models.User `json:"user"`
}

// errInvalidCredentials never says which half of the pair was wrong.
const errInvalidCredentials = "invalid email or password"

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/signup                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.Email = normalize.Email(req.Email)
	req.FullName = normalize.Name(req.FullName)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	if ok, msg := h.Limiter.Check(r, req.Email); !ok {
		respond.TooManyRequests(w, r, msg, 0)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		respond.ServerError(w, r, h.Log, "hash password failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		AuthMethod:   models.AuthPassword,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsPublic:     true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, r, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "create user failed", err)
		return
	}

	h.AuditLog.Signup(ctx, r, u.ID, models.AuthPassword)
	h.startSession(w, r, &u, http.StatusCreated)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, msg := h.Limiter.Check(r, req.Email); !ok {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedRateLimit, primitive.NilObjectID, req.Email, "rate limited")
		respond.TooManyRequests(w, r, msg, 0)
		return
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedUserNotFound, primitive.NilObjectID, req.Email, "no such user")
		respond.Error(w, r, http.StatusUnauthorized, errInvalidCredentials)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load user failed", err)
		return
	}

	// Accounts created through Google or Firebase have no password; they
	// fail the same way a wrong password does.
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedWrongPassword, u.ID, req.Email, "wrong password")
		respond.Error(w, r, http.StatusUnauthorized, errInvalidCredentials)
		return
	}
	if u.Banned {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedBanned, u.ID, req.Email, "banned")
		respond.Error(w, r, http.StatusForbidden, "this account has been suspended")
		return
	}

	h.Limiter.ResetEmail(req.Email)
	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthPassword)
	h.startSession(w, r, u, http.StatusOK)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/firebase                                                      |
| Exchanges a Firebase ID token for a session, creating the account on the    |
| first sign in. The token may be in the body or an Authorization header.      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleFirebase(w http.ResponseWriter, r *http.Request) {
	if h.Firebase == nil {
		respond.Error(w, r, http.StatusNotImplemented, "firebase sign in is not configured")
		return
	}

	var req firebaseRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Invalid(w, r, errors.New("malformed JSON body"))
			return
		}
	}
	token := strings.TrimSpace(req.IDToken)
	if token == "" {
		token = firebaseauth.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		respond.Invalid(w, r, errors.New("id_token is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, err := h.Firebase.Verify(ctx, token)
	if errors.Is(err, firebaseauth.ErrInvalidToken) {
		respond.Fail(w, r, h.Log, http.StatusUnauthorized, err.Error(), err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "verify firebase token failed", err)
		return
	}

	if id.Email == "" {
		respond.Invalid(w, r, errors.New("the firebase account has no email address"))
		return
	}

	u, created, err := h.findOrCreate(ctx, models.AuthFirebase, id.UID, id.Email, id.Name, id.Picture)
	switch {
	case errors.Is(err, errOtherMethod):
		respond.Error(w, r, http.StatusConflict, err.Error())
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "firebase account lookup failed", err)
		return
	}
	if u.Banned {
		h.AuditLog.LoginFailed(ctx, r, audit.EventLoginFailedBanned, u.ID, u.Email, "banned")
		respond.Error(w, r, http.StatusForbidden, "this account has been suspended")
		return
	}

	status := http.StatusOK
	if created {
		h.AuditLog.Signup(ctx, r, u.ID, models.AuthFirebase)
		status = http.StatusCreated
	} else {
		h.AuditLog.LoginSuccess(ctx, r, u.ID, models.AuthFirebase)
	}
	h.startSession(w, r, u, status)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/me                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		respond.Unauthorized(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, oid)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Unauthorized(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load current user failed", err)
		return
	}
	respond.OK(w, r, meResponse{User: u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *models.User, status int) {
	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		respond.ServerError(w, r, h.Log, "save session failed", err)
		return
	}
	h.Log.Info("user signed in",
		zap.String("user_id", u.ID.Hex()),
		zap.String("auth_method", u.AuthMethod))
	respond.JSON(w, r, status, meResponse{User: u})
}
