package analytics_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/analytics"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.uber.org/zap"
)

func TestServeSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateRegularUser(ctx, "Owner", "owner@example.com")
	now := time.Now().UTC()
	fx.CreateInteraction(ctx, u.ID, models.InteractionView, now)
	fx.CreateInteraction(ctx, u.ID, models.InteractionView, now)
	fx.CreateInteraction(ctx, u.ID, models.InteractionTap, now)
	fx.CreateInteraction(ctx, u.ID, models.InteractionView, now.AddDate(0, 0, -40))

	h := analytics.NewHandler(interactionstore.New(db), zap.NewNop())
	tu := testutil.AsTestUser(u)

	rec := testutil.NewRecorder()
	h.ServeSummary(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/analytics?days=7", tu))
	rec.AssertStatus(t, http.StatusOK)

	var sum interactionstore.Summary
	rec.DecodeJSON(t, &sum)
	if sum.Days != 7 || len(sum.Series) != 7 {
		t.Errorf("days = %d, series = %d, want 7", sum.Days, len(sum.Series))
	}
	if sum.Totals[models.InteractionView] != 2 || sum.Totals[models.InteractionTap] != 1 {
		t.Errorf("totals = %v", sum.Totals)
	}
	if _, ok := sum.Totals[models.InteractionMessage]; !ok {
		t.Error("totals missing zero entry for message")
	}

	for _, tt := range []struct {
		target string
		want   int
	}{
		{"/api/me/analytics", http.StatusOK},
		{"/api/me/analytics?days=abc", http.StatusBadRequest},
		{"/api/me/analytics?days=0", http.StatusBadRequest},
	} {
		rec := testutil.NewRecorder()
		h.ServeSummary(rec, testutil.NewAuthenticatedRequest("GET", tt.target, tu))
		rec.AssertStatus(t, tt.want)
	}

	rec = testutil.NewRecorder()
	h.ServeSummary(rec, testutil.NewRequest("GET", "/api/me/analytics"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
