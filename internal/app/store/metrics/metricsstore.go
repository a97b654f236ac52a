// Package metricsstore computes the totals shown on the admin dashboard.
package metricsstore

import (
	"context"
	"fmt"
	"time"

	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// StalePaymentAfter is how old a pending checkout must be before the
// dashboard calls it out.
const StalePaymentAfter = 24 * time.Hour

// Counts is the set of totals used by the admin dashboard.
type Counts struct {
	Users           int64            `json:"users"`
	BannedUsers     int64            `json:"banned_users"`
	ActiveCards     int64            `json:"active_cards"`
	Orders          map[string]int64 `json:"orders"`
	StalePayments   int64            `json:"stale_payments"`
	PendingReports  int64            `json:"pending_reports"`
	InteractionsDay int64            `json:"interactions_24h"`
	ComputedAt      time.Time        `json:"computed_at"`
}

// Fetch runs every count concurrently. The first failure cancels the rest.
func Fetch(ctx context.Context, db *mongo.Database, now time.Time) (Counts, error) {
	out := Counts{ComputedAt: now.UTC()}
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int64, coll string, filter bson.M) {
		g.Go(func() error {
			n, err := db.Collection(coll).CountDocuments(gctx, filter)
			if err != nil {
				return fmt.Errorf("count %s: %w", coll, err)
			}
			*dst = n
			return nil
		})
	}

	count(&out.Users, "users", bson.M{})
	count(&out.BannedUsers, "users", bson.M{"banned": true})
	count(&out.ActiveCards, "cards", bson.M{"active": true})
	count(&out.PendingReports, "reports", bson.M{"status": models.ReportPending})
	count(&out.StalePayments, "orders", bson.M{
		"payment.status": models.PaymentPending,
		"created_at":     bson.M{"$lt": now.Add(-StalePaymentAfter)},
	})
	count(&out.InteractionsDay, "interactions", bson.M{"created_at": bson.M{"$gte": now.Add(-24 * time.Hour)}})

	g.Go(func() error {
		byStatus, err := orderstore.New(db).CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("count orders by status: %w", err)
		}
		out.Orders = byStatus
		return nil
	})

	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return out, nil
}
