// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/tasks"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// live holds what Startup and BuildHandler start so Shutdown can stop it.
var live struct {
	mu        sync.Mutex
	scheduler *tasks.Scheduler
	closers   []func()
}

func onShutdown(fn func()) {
	live.mu.Lock()
	live.closers = append(live.closers, fn)
	live.mu.Unlock()
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminEmail, logger); err != nil {
			return err
		}
	}

	orders := orderstore.New(deps.MongoDatabase)
	s := tasks.NewScheduler(logger)
	s.Add(tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger))
	s.Add(tasks.PendingCheckoutJob(orders.CountAwaitingPayment, logger, 24*time.Hour))
	s.Start()

	live.mu.Lock()
	live.scheduler = s
	live.mu.Unlock()
	return nil
}

// ensureSuperAdmin promotes the user with email to super_admin, creating
// the account when it does not exist yet. The created account has no
// password; the owner signs in with Google or Firebase and is linked by
// email.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.PromoteByEmail(ctx, email, models.RoleSuperAdmin)
	if err == nil {
		logger.Info("super admin ensured", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
		return nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("promote super admin: %w", err)
	}

	created, err := users.Create(ctx, models.User{
		FullName:   "Super Admin",
		Email:      email,
		AuthMethod: models.AuthGoogle,
		Role:       models.RoleSuperAdmin,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Another instance created it between the two calls.
		_, err = users.PromoteByEmail(ctx, email, models.RoleSuperAdmin)
		return err
	}
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	logger.Info("super admin created", zap.String("email", created.Email), zap.String("user_id", created.ID.Hex()))
	return nil
}
