// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"
	"time"

	adminordersfeature "github.com/dalemusser/cardhub/internal/app/features/adminorders"
	adminusersfeature "github.com/dalemusser/cardhub/internal/app/features/adminusers"
	analyticsfeature "github.com/dalemusser/cardhub/internal/app/features/analytics"
	auditlogfeature "github.com/dalemusser/cardhub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/cardhub/internal/app/features/authgoogle"
	contentfeature "github.com/dalemusser/cardhub/internal/app/features/content"
	dashboardfeature "github.com/dalemusser/cardhub/internal/app/features/dashboard"
	healthfeature "github.com/dalemusser/cardhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/cardhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/cardhub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/cardhub/internal/app/features/notifications"
	ordersfeature "github.com/dalemusser/cardhub/internal/app/features/orders"
	plansfeature "github.com/dalemusser/cardhub/internal/app/features/plans"
	profilefeature "github.com/dalemusser/cardhub/internal/app/features/profile"
	publicprofilefeature "github.com/dalemusser/cardhub/internal/app/features/publicprofile"
	reportsfeature "github.com/dalemusser/cardhub/internal/app/features/reports"
	uploadsfeature "github.com/dalemusser/cardhub/internal/app/features/uploads"
	"github.com/dalemusser/cardhub/internal/app/store/audit"
	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	contentstore "github.com/dalemusser/cardhub/internal/app/store/content"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/notify"
	"github.com/dalemusser/cardhub/internal/app/system/payments"
	"github.com/dalemusser/cardhub/internal/app/system/pinlock"
	"github.com/dalemusser/cardhub/internal/app/system/ratelimit"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// unlockTokenTTL is how long a PIN unlock stays valid.
const unlockTokenTTL = 30 * time.Minute

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook. CardHub serves a JSON API under /api, card redirects
// under /c, Google OAuth under /auth, health under /health and, with local
// storage, uploaded files under storage_local_url.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user on each request so role changes and bans apply immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Stores
	users := userstore.New(db)
	names := usernames.New(db, logger)
	plans := planstore.New(db)
	private := privatestore.New(db)
	cards := cardstore.New(db)
	interactions := interactionstore.New(db)
	orders := orderstore.New(db)
	reports := reportstore.New(db)
	content := contentstore.New(db)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	// Services
	var hub notify.Hub = notify.NewMemory(logger)
	var redisHealth healthfeature.Pinger
	if deps.Redis != nil {
		hub = notify.NewRedis(deps.Redis, logger)
		redisHealth = redisPinger{deps.Redis}
	}
	onShutdown(func() { _ = hub.Close() })

	var pay ordersfeature.Payments
	if appCfg.StripeSecretKey != "" {
		pay = payments.New(appCfg.StripeSecretKey, appCfg.StripeWebhookSecret, logger)
	} else {
		logger.Info("stripe not configured; orders are recorded as manual payments")
	}

	loginLimiter := ratelimit.NewLoginLimiter()
	unlockLimiter := ratelimit.NewUnlockLimiter()
	onShutdown(loginLimiter.Close)
	onShutdown(unlockLimiter.Close)

	unlockKey := appCfg.UnlockKey
	if unlockKey == "" {
		unlockKey = appCfg.SessionKey + ":unlock"
	}
	tokens := pinlock.New([]byte(unlockKey), unlockTokenTTL)

	// Handlers
	healthH := healthfeature.NewHandler(deps.MongoClient, redisHealth, logger)
	loginH := loginfeature.NewHandler(users, sessionMgr, loginLimiter, deps.Firebase, auditLog, logger)
	logoutH := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	profileH := profilefeature.NewHandler(profilefeature.Deps{
		Users:        users,
		Usernames:    names,
		Plans:        plans,
		Private:      private,
		Cards:        cards,
		Interactions: interactions,
		Orders:       orders,
		Files:        deps.Files,
	}, sessionMgr, auditLog, logger)
	publicH := publicprofilefeature.NewHandler(publicprofilefeature.Deps{
		Users:        users,
		Plans:        plans,
		Private:      private,
		Cards:        cards,
		Interactions: interactions,
		Hub:          hub,
		Unlocks:      unlockLimiter,
		Tokens:       tokens,
	}, appCfg.PublicBaseURL, logger)
	notificationsH := notificationsfeature.NewHandler(interactions, hub, appCfg.CORSOrigins, logger)
	analyticsH := analyticsfeature.NewHandler(interactions, logger)
	ordersH := ordersfeature.NewHandler(orders, plans, cards, users, pay, appCfg.PublicBaseURL, logger)
	reportsH := reportsfeature.NewHandler(reports, users, auditLog, logger)
	uploadsH := uploadsfeature.NewHandler(deps.Files, logger)
	plansH := plansfeature.NewHandler(plans, logger)
	contentH := contentfeature.NewHandler(content, plans, auditLog, logger)

	dashboardH := dashboardfeature.NewHandler(db, logger)
	adminUsersH := adminusersfeature.NewHandler(users, names, reports, auditLog, logger)
	adminOrdersH := adminordersfeature.NewHandler(orders, auditLog, logger)
	auditH := auditlogfeature.NewHandler(audit.New(db), users, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Unlock-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Loads the SessionUser into context when signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthH))

	if local, ok := deps.Files.(*blobstore.Local); ok {
		r.Handle(appCfg.StorageLocalURL+"/*", local.Handler())
	}

	// NFC card taps
	r.Mount("/c", publicprofilefeature.CardRoutes(publicH))

	if appCfg.GoogleClientID != "" {
		googleH := authgooglefeature.NewHandler(users, oauthstate.New(db), sessionMgr, auditLog,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.APIBaseURL, appCfg.PublicBaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleH))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/logout", logoutH.ServeLogout)
		r.Mount("/auth", loginfeature.Routes(loginH))

		r.Mount("/plans", plansfeature.Routes(plansH))
		r.Mount("/content", contentfeature.Routes(contentH))
		r.Mount("/webhooks", ordersfeature.WebhookRoutes(ordersH))

		r.Group(func(r chi.Router) {
			r.Use(sessionMgr.RequireSignedIn)
			r.Mount("/me/analytics", analyticsfeature.Routes(analyticsH))
			r.Mount("/me", profilefeature.Routes(profileH))
			// The stream endpoint upgrades to a websocket; nothing here may
			// buffer or time out the response.
			r.Mount("/notifications", notificationsfeature.Routes(notificationsH))
			r.Mount("/orders", ordersfeature.Routes(ordersH))
			r.Mount("/reports", reportsfeature.Routes(reportsH))
			r.Mount("/uploads", uploadsfeature.Routes(uploadsH))
		})

		// Admin console, mounted at /api/admin.
		r.Route("/admin", func(r chi.Router) {
			r.Use(sessionMgr.RequireStaff)
			r.Mount("/dashboard", dashboardfeature.Routes(dashboardH))
			r.Mount("/users", adminusersfeature.Routes(adminUsersH, sessionMgr))
			r.Mount("/orders", adminordersfeature.Routes(adminOrdersH))
			r.Mount("/reports", reportsfeature.AdminRoutes(reportsH))
			r.Mount("/content", contentfeature.AdminRoutes(contentH))
			r.Mount("/plans", plansfeature.AdminRoutes(plansH))
			r.Mount("/audit", auditlogfeature.Routes(auditH))
		})

		// /api/u/{username} and /api/p/{id}
		r.Mount("/", publicprofilefeature.Routes(publicH))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { respond.NotFound(w, r) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r, nil
}
