// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob removes expired OAuth states. The TTL index does
// the same, but the TTL monitor only runs about once a minute and can lag
// under load.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// PendingCheckoutJob reports orders still waiting on payment after maxAge.
// Stripe expires abandoned sessions on its own; this only surfaces them.
func PendingCheckoutJob(count func(ctx context.Context, olderThan time.Time) (int64, error), logger *zap.Logger, maxAge time.Duration) Job {
	return Job{
		Name:     "pending-checkout-report",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := count(ctx, time.Now().Add(-maxAge))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Warn("orders awaiting payment", zap.Int64("count", n), zap.Duration("older_than", maxAge))
			}
			return nil
		},
	}
}
