// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/login"
	"github.com/dalemusser/cardhub/internal/app/store/audit"
	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/normalize"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// StateTTL bounds how long a user may sit on Google's consent screen.
const StateTTL = 10 * time.Minute

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	StateStore *oauthstate.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.cardhub.app/auth/google/callback"

	// AppURL is the public web app the browser returns to after sign in.
	AppURL string

	// Endpoint and UserInfoURL default to Google's; tests point them at a
	// local server.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler. apiBaseURL is where this
// server is reachable; appURL is the web app.
func NewHandler(
	users *userstore.Store,
	stateStore *oauthstate.Store,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	clientID, clientSecret, apiBaseURL, appURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        users,
		StateStore:   stateStore,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(apiBaseURL, "/") + "/auth/google/callback",
		AppURL:       strings.TrimRight(appURL, "/"),
		Endpoint:     google.Endpoint,
		UserInfoURL:  defaultUserInfoURL,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectToApp(w, r, "/login", "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.redirectToApp(w, r, "/login", "internal")
		return
	}
	verifier := oauth2.GenerateVerifier()
	returnTo := safePath(query.Get(r, "return"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.StateStore.Save(ctx, oauthstate.State{
		State:     state,
		Verifier:  verifier,
		ReturnTo:  returnTo,
		ExpiresAt: time.Now().UTC().Add(StateTTL),
	})
	if err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.redirectToApp(w, r, "/login", "internal")
		return
	}

	dest := h.oauth2Config().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	h.Log.Debug("initiating Google OAuth flow", zap.String("return_to", returnTo))

	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the Google profile, finds or creates the         |
| account and starts a session.                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.redirectToApp(w, r, "/login", "google_denied")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		h.redirectToApp(w, r, "/login", "invalid_state")
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	st, err := h.StateStore.Consume(ctxTimeout, state)
	if errors.Is(err, oauthstate.ErrInvalid) {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToApp(w, r, "/login", "invalid_state")
		return
	}
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.redirectToApp(w, r, "/login", "internal")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.redirectToApp(w, r, "/login", "invalid_code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctxTimeout, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectToApp(w, r, "/login", "token_exchange")
		return
	}

	gu, err := h.fetchUserInfo(ctxTimeout, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectToApp(w, r, "/login", "user_info")
		return
	}
	if gu.Email == "" || !gu.EmailVerified {
		h.redirectToApp(w, r, "/login", "email_unverified")
		return
	}

	u, created, err := login.FindOrCreateFederated(ctxTimeout, h.Users, models.AuthGoogle,
		gu.ID, normalize.Email(gu.Email), gu.Name, gu.Picture)
	if login.IsOtherMethod(err) {
		h.redirectToApp(w, r, "/login", "email_in_use")
		return
	}
	if err != nil {
		h.Log.Error("failed to look up user", zap.Error(err))
		h.redirectToApp(w, r, "/login", "internal")
		return
	}
	if u.Banned {
		h.AuditLog.LoginFailed(ctxTimeout, r, audit.EventLoginFailedBanned, u.ID, u.Email, "banned")
		h.redirectToApp(w, r, "/login", "account_suspended")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.redirectToApp(w, r, "/login", "session")
		return
	}
	if created {
		h.AuditLog.Signup(ctxTimeout, r, u.ID, models.AuthGoogle)
	} else {
		h.AuditLog.LoginSuccess(ctxTimeout, r, u.ID, models.AuthGoogle)
	}

	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("created", created))

	dest := st.ReturnTo
	if dest == "" {
		dest = "/"
	}
	h.redirectToApp(w, r, dest, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Google profile                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauth2Config().Client(ctx, token)

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("user info has no id")
	}
	return &info, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// redirectToApp sends the browser to path on the web app, with ?error=code
// when code is set.
func (h *Handler) redirectToApp(w http.ResponseWriter, r *http.Request, path, code string) {
	dest := h.AppURL + path
	if code != "" {
		dest += "?error=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// safePath keeps only same-origin relative paths.
func safePath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	return p
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
