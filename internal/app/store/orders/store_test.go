package orderstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o, err := store.Create(ctx, models.Order{
		UserID:  primitive.NewObjectID(),
		PlanID:  "basic",
		Status:  models.OrderShipped,
		Payment: models.Payment{Provider: "manual", Status: models.PaymentManual},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != models.OrderReceived {
		t.Errorf("status = %q, want order_received regardless of input", o.Status)
	}
	if o.Timeline.OrderReceived == nil || o.Timeline.Processing != nil {
		t.Errorf("timeline = %+v", o.Timeline)
	}
}

func TestAdvance_OneStepAtATime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderReceived, time.Now())

	if _, _, err := store.Advance(ctx, o.ID, models.OrderShipped); !errors.Is(err, orderstore.ErrBadTransition) {
		t.Fatalf("skip step err = %v, want ErrBadTransition", err)
	}

	steps := []string{models.OrderProcessing, models.OrderShipped, models.OrderDelivered}
	prev := models.OrderReceived
	for _, to := range steps {
		from, got, err := store.Advance(ctx, o.ID, to)
		if err != nil {
			t.Fatalf("Advance to %s: %v", to, err)
		}
		if from != prev || got.Status != to {
			t.Errorf("Advance to %s: from=%q status=%q", to, from, got.Status)
		}
		prev = to
	}

	done, _ := store.Get(ctx, o.ID)
	if done.Timeline.Processing == nil || done.Timeline.Shipped == nil || done.Timeline.Delivered == nil {
		t.Errorf("timeline not stamped: %+v", done.Timeline)
	}

	if _, _, err := store.Advance(ctx, o.ID, models.OrderShipped); !errors.Is(err, orderstore.ErrBadTransition) {
		t.Errorf("rollback err = %v, want ErrBadTransition", err)
	}
	if _, _, err := store.Advance(ctx, primitive.NewObjectID(), models.OrderProcessing); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("missing order err = %v, want ErrNotFound", err)
	}
}

func TestAdvance_ConcurrentAdminsApplyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderReceived, time.Now())

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = store.Advance(ctx, o.ID, models.OrderProcessing)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, orderstore.ErrBadTransition):
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d admins advanced the order, want 1", ok)
	}
}

func TestUpdateDetails_OnlyWhileReceived(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	o := fx.CreateOrder(ctx, owner, models.OrderReceived, time.Now())

	ship := models.Shipping{Name: "New", Line1: "2 Side St", City: "Shelbyville", PostalCode: "11111", Country: "US"}
	got, err := store.UpdateDetails(ctx, o.ID, owner, orderstore.Details{
		Customization: models.Customization{NameOnCard: "Ada L.", Color: "black", Finish: "matte"},
		Shipping:      &ship,
	})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if got.Customization.NameOnCard != "Ada L." || got.Shipping.City != "Shelbyville" {
		t.Errorf("details not saved: %+v", got)
	}

	if _, err := store.UpdateDetails(ctx, o.ID, primitive.NewObjectID(), orderstore.Details{}); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("other user err = %v, want ErrNotFound", err)
	}

	if _, _, err := store.Advance(ctx, o.ID, models.OrderProcessing); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	_, err = store.UpdateDetails(ctx, o.ID, owner, orderstore.Details{
		Customization: models.Customization{NameOnCard: "Too late"},
	})
	if !errors.Is(err, orderstore.ErrNotEditable) {
		t.Fatalf("edit after processing err = %v, want ErrNotEditable", err)
	}
	after, _ := store.Get(ctx, o.ID)
	if after.Customization.NameOnCard != "Ada L." {
		t.Error("customization changed after order left order_received")
	}
}

func TestSetTracking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	early := fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderProcessing, time.Now())
	shipped := fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderShipped, time.Now())

	if err := store.SetTracking(ctx, early.ID, "1Z999"); !errors.Is(err, orderstore.ErrNotEditable) {
		t.Errorf("processing err = %v, want ErrNotEditable", err)
	}
	if err := store.SetTracking(ctx, shipped.ID, "1Z999"); err != nil {
		t.Fatalf("SetTracking: %v", err)
	}
	got, _ := store.Get(ctx, shipped.ID)
	if got.TrackingNumber != "1Z999" {
		t.Errorf("tracking = %q", got.TrackingNumber)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o, err := store.Create(ctx, models.Order{UserID: primitive.NewObjectID(), PlanID: "pro"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AttachCheckout(ctx, o.ID, "cs_test_1"); err != nil {
		t.Fatalf("AttachCheckout: %v", err)
	}

	if _, _, err := store.MarkPaid(ctx, o.ID, "cs_other"); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("wrong session err = %v, want ErrNotFound", err)
	}

	paid, changed, err := store.MarkPaid(ctx, o.ID, "cs_test_1")
	if err != nil || !changed {
		t.Fatalf("MarkPaid = changed %v, err %v", changed, err)
	}
	if paid.Payment.Status != models.PaymentPaid || paid.Payment.PaidAt == nil {
		t.Errorf("payment = %+v", paid.Payment)
	}

	again, changed, err := store.MarkPaid(ctx, o.ID, "cs_test_1")
	if err != nil || changed || again == nil {
		t.Errorf("redelivery: changed=%v err=%v", changed, err)
	}

	if err := store.MarkCheckoutExpired(ctx, o.ID, "cs_test_1"); err != nil {
		t.Fatalf("MarkCheckoutExpired: %v", err)
	}
	got, _ := store.Get(ctx, o.ID)
	if got.Payment.Status != models.PaymentPaid {
		t.Error("expiry must not override a paid order")
	}
}

func TestList_StatusFilterAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)

	owner := primitive.NewObjectID()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		status := models.OrderReceived
		if i%3 == 0 {
			status = models.OrderShipped
		}
		fx.CreateOrder(ctx, owner, status, base.Add(time.Duration(i)*time.Second))
	}

	first, err := store.List(ctx, "", paging.Request{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(first.Items) != paging.PageSize || !first.HasMore || first.Next == "" {
		t.Fatalf("first page: %d items has_more=%v", len(first.Items), first.HasMore)
	}
	second, err := store.List(ctx, "", paging.Request{After: first.Next})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(second.Items) != 5 || second.HasMore {
		t.Errorf("second page: %d items has_more=%v", len(second.Items), second.HasMore)
	}

	shipped, err := store.List(ctx, models.OrderShipped, paging.Request{})
	if err != nil {
		t.Fatalf("List shipped: %v", err)
	}
	if len(shipped.Items) != 10 || shipped.Fallback {
		t.Errorf("shipped: %d items fallback=%v", len(shipped.Items), shipped.Fallback)
	}
	for _, o := range shipped.Items {
		if o.Status != models.OrderShipped {
			t.Errorf("unexpected status %q", o.Status)
		}
	}

	mine, err := store.ListByUser(ctx, owner, paging.Request{Limit: 100})
	if err != nil || len(mine.Items) != 30 {
		t.Errorf("ListByUser = %d, %v", len(mine.Items), err)
	}
}

func TestList_FallbackWithoutIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		status := models.OrderReceived
		if i%2 == 0 {
			status = models.OrderDelivered
		}
		fx.CreateOrder(ctx, primitive.NewObjectID(), status, base.Add(time.Duration(i)*time.Second))
	}

	page, err := store.List(ctx, models.OrderDelivered, paging.Request{Limit: 4})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !page.Fallback {
		t.Error("expected fallback without the hinted index")
	}
	if len(page.Items) != 4 || !page.HasMore {
		t.Errorf("page: %d items has_more=%v", len(page.Items), page.HasMore)
	}
}

func TestCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderReceived, time.Now())
	fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderReceived, time.Now())
	fx.CreateOrder(ctx, primitive.NewObjectID(), models.OrderShipped, time.Now())

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.OrderReceived] != 2 || counts[models.OrderShipped] != 1 || counts[models.OrderDelivered] != 0 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[models.OrderProcessing]; !ok {
		t.Error("every status should be present")
	}

	o, _ := store.Create(ctx, models.Order{UserID: primitive.NewObjectID()})
	_ = store.AttachCheckout(ctx, o.ID, "cs_pending")
	n, err := store.CountAwaitingPayment(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("CountAwaitingPayment = %d, %v; want 1", n, err)
	}
}
