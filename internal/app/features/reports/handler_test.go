package reports_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/reports"
	"github.com/dalemusser/cardhub/internal/app/store/audit"
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*reports.Handler, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{})
	h := reports.NewHandler(reportstore.New(db), userstore.New(db), al, logger)
	return h, db, testutil.NewFixtures(t, db)
}

func TestHandleSubmit(t *testing.T) {
	h, _, fx := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	reporter := fx.CreateRegularUser(ctx, "Reporter", "rep@example.com")
	target := fx.CreateRegularUser(ctx, "Target", "target@example.com")
	tu := testutil.AsTestUser(reporter)

	body := func(id string, reasons ...string) map[string]any {
		return map[string]any{"reported_user_id": id, "reasons": reasons, "description": "fake profile"}
	}
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ok", body(target.ID.Hex(), "spam", "spam", "scam"), http.StatusCreated},
		{"duplicate", body(target.ID.Hex(), "other"), http.StatusConflict},
		{"self", body(reporter.ID.Hex(), "spam"), http.StatusBadRequest},
		{"unknown reason", body(target.ID.Hex(), "boring"), http.StatusBadRequest},
		{"no reasons", body(target.ID.Hex()), http.StatusBadRequest},
		{"bad id", body("xyz", "spam"), http.StatusBadRequest},
		{"unknown user", body(primitive.NewObjectID().Hex(), "spam"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSubmit(rec, testutil.NewAuthenticatedJSONRequest("POST", "/api/reports", tu, tt.body))
			rec.AssertStatus(t, tt.want)
			if tt.name == "ok" {
				var rep models.Report
				rec.DecodeJSON(t, &rep)
				if rep.ID != models.ReportID(reporter.ID, target.ID) || len(rep.Reasons) != 2 || rep.Status != models.ReportPending {
					t.Errorf("report = %+v", rep)
				}
			}
		})
	}
}

func TestAdminQueue(t *testing.T) {
	h, db, fx := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	au := testutil.AsTestUser(admin)
	target := fx.CreateRegularUser(ctx, "Target", "target@example.com")
	a := fx.CreateRegularUser(ctx, "A", "a@example.com")
	b := fx.CreateRegularUser(ctx, "B", "b@example.com")

	first := fx.CreateReport(ctx, a.ID, target.ID, models.ReportPending, time.Now().Add(-time.Hour))
	fx.CreateReport(ctx, b.ID, target.ID, models.ReportDismissed, time.Now())

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/reports?status=pending", au))
	rec.AssertStatus(t, http.StatusOK)
	var page paging.Page[models.Report]
	rec.DecodeJSON(t, &page)
	if len(page.Items) != 1 || page.Items[0].ID != first.ID {
		t.Errorf("pending queue = %+v", page.Items)
	}

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/reports?status=open", au))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServeReport(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/api/admin/reports/"+first.ID, au), "id", first.ID))
	rec.AssertStatus(t, http.StatusOK)
	var detail struct {
		Report       models.Report   `json:"report"`
		ReportedUser models.User     `json:"reported_user"`
		Others       []models.Report `json:"other_reports"`
	}
	rec.DecodeJSON(t, &detail)
	if detail.ReportedUser.ID != target.ID || len(detail.Others) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	closeReport := func(id string, body map[string]string) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedJSONRequest("POST", "/api/admin/reports/"+id+"/close", au, body)
		rec := testutil.NewRecorder()
		h.HandleClose(rec, testutil.WithChiURLParam(req, "id", id))
		return rec
	}
	closeReport(first.ID, map[string]string{"status": "pending"}).AssertStatus(t, http.StatusBadRequest)
	rec = closeReport(first.ID, map[string]string{"status": "resolved", "note": "warned"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"resolved"`)
	closeReport(first.ID, map[string]string{"status": "dismissed"}).AssertStatus(t, http.StatusUnprocessableEntity)
	closeReport("missing_id", map[string]string{"status": "dismissed"}).AssertStatus(t, http.StatusNotFound)

	got, _ := userstore.New(db).GetByID(ctx, target.ID)
	if got.Banned || got.Warning != nil {
		t.Error("closing a report must not moderate the user")
	}
	n, _ := audit.New(db).Count(ctx, audit.QueryFilter{EventType: audit.EventReportClosed})
	if n != 1 {
		t.Errorf("audit events = %d, want 1", n)
	}
}
