package authgoogle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/authgoogle"
	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const appURL = "https://app.example.com"

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "g-123", "email": email, "verified_email": verified, "name": "Gee User",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, google *httptest.Server) (*authgoogle.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	h := authgoogle.NewHandler(userstore.New(db), oauthstate.New(db), sessionMgr, nil,
		"test-client-id", "test-client-secret", "http://localhost:8080", appURL, logger)
	if google != nil {
		h.Endpoint = oauth2.Endpoint{AuthURL: google.URL + "/auth", TokenURL: google.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
		h.UserInfoURL = google.URL + "/userinfo"
	}
	return h, db
}

func TestIsConfigured(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	if !h.IsConfigured() {
		t.Error("IsConfigured() should return true with client ID and secret")
	}
	h.ClientSecret = ""
	if h.IsConfigured() {
		t.Error("IsConfigured() should return false without a secret")
	}
}

func TestServeLogin_RedirectsWithPKCE(t *testing.T) {
	h, db := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google?return=/me/orders", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	q := loc.Query()
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("missing PKCE challenge: %s", loc)
	}
	if q.Get("redirect_uri") != "http://localhost:8080/auth/google/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	var st oauthstate.State
	if err := db.Collection("oauth_states").FindOne(ctx, bson.M{"_id": q.Get("state")}).Decode(&st); err != nil {
		t.Fatalf("state not stored: %v", err)
	}
	if st.Verifier == "" || st.ReturnTo != "/me/orders" {
		t.Errorf("stored state = %+v", st)
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	h.ClientID = ""

	rec := testutil.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest("GET", "/auth/google", nil))
	rec.AssertRedirect(t, appURL+"/login?error=google_not_configured")
}

func saveState(t *testing.T, db *mongo.Database, state, returnTo string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	err := oauthstate.New(db).Save(ctx, oauthstate.State{
		State:     state,
		Verifier:  oauth2.GenerateVerifier(),
		ReturnTo:  returnTo,
		ExpiresAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("Save state: %v", err)
	}
}

func TestServeCallback_CreatesAccountAndSignsIn(t *testing.T) {
	google := fakeGoogle(t, "Gee@Example.com", true)
	h, db := newTestHandler(t, google)
	saveState(t, db, "st-1", "/welcome")

	rec := testutil.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=st-1&code=abc", nil))
	rec.AssertRedirect(t, appURL+"/welcome")

	var signedIn bool
	for _, c := range rec.Result().Cookies() {
		signedIn = signedIn || c.Name == "test-session"
	}
	if !signedIn {
		t.Error("expected session cookie")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(db).GetByAuthSubject(ctx, models.AuthGoogle, "g-123")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if u.Email != "gee@example.com" || u.FullName != "Gee User" {
		t.Errorf("user = %q / %q", u.Email, u.FullName)
	}

	// The state is single use.
	rec = testutil.NewRecorder()
	h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback?state=st-1&code=abc", nil))
	rec.AssertRedirect(t, appURL+"/login?error=invalid_state")
}

func TestServeCallback_Errors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		verified bool
		setup    func(t *testing.T, f *testutil.Fixtures)
		target   string
		want     string
	}{
		{name: "denied", target: "?error=access_denied", want: "google_denied"},
		{name: "missing state", target: "?code=abc", want: "invalid_state"},
		{name: "unknown state", target: "?state=nope&code=abc", want: "invalid_state"},
		{name: "missing code", target: "?state=st", want: "invalid_code"},
		{name: "unverified email", email: "u@example.com", verified: false, target: "?state=st&code=abc", want: "email_unverified"},
		{
			name: "email owned by password account", email: "pw@example.com", verified: true,
			setup: func(t *testing.T, f *testutil.Fixtures) {
				ctx, cancel := testutil.TestContext()
				defer cancel()
				f.CreatePasswordUser(ctx, "Pw", "pw@example.com", "password1")
			},
			target: "?state=st&code=abc", want: "email_in_use",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			google := fakeGoogle(t, tt.email, tt.verified)
			h, db := newTestHandler(t, google)
			saveState(t, db, "st", "")
			if tt.setup != nil {
				tt.setup(t, testutil.NewFixtures(t, db))
			}

			rec := testutil.NewRecorder()
			h.ServeCallback(rec, httptest.NewRequest("GET", "/auth/google/callback"+tt.target, nil))
			rec.AssertRedirect(t, appURL+"/login?error="+tt.want)
			if strings.Contains(rec.Header().Get("Set-Cookie"), "test-session") {
				t.Error("failed callback must not start a session")
			}
		})
	}
}
