package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/offers"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/testutil"
)

var storeNow = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *testutil.FakeDynamo) {
	t.Helper()
	fake := testutil.NewFakeDynamo(map[string][]string{
		"orders":      {"id"},
		"counters":    {"name"},
		"idempotency": {"idempotency_key"},
		"offers":      {"id"},
		"offer_usage": {"offer_id", "customer_ref"},
	})
	store := NewStore(fake, "orders", "counters")
	store.nowFunc = func() time.Time { return storeNow }
	return store, fake
}

func TestNextOrderNumberSequence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		num, err := store.NextOrderNumber(ctx, storeNow)
		if err != nil {
			t.Fatalf("NextOrderNumber: %v", err)
		}
		want := fmt.Sprintf("ORD-2026-%05d", i)
		if num != want {
			t.Errorf("NextOrderNumber #%d = %s, want %s", i, num, want)
		}
	}
}

func TestNextOrderNumberPerYearCounters(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.NextOrderNumber(ctx, storeNow); err != nil {
		t.Fatalf("NextOrderNumber: %v", err)
	}
	next, err := store.NextOrderNumber(ctx, storeNow.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("NextOrderNumber: %v", err)
	}
	// A new year restarts the sequence.
	if next != "ORD-2027-00001" {
		t.Errorf("NextOrderNumber new year = %s, want ORD-2027-00001", next)
	}
}

func TestCreateHappyPath(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	order := Order{ID: "o1", OrderNumber: "ORD-2026-00001", CustomerID: "c1", Status: StatusPending}
	if err := store.Create(ctx, order, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fake.Item("orders", "o1") == nil {
		t.Fatal("order not persisted")
	}

	got, err := store.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OrderNumber != "ORD-2026-00001" || got.Status != StatusPending {
		t.Errorf("Get = %+v", got)
	}
	if !got.CreatedAt.Equal(storeNow) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, storeNow)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	order := Order{ID: "o1"}
	if err := store.Create(ctx, order, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, order, "", nil, nil); !errors.Is(err, ErrOrderExists) {
		t.Errorf("second Create = %v, want ErrOrderExists", err)
	}
}

func TestCreateIdempotencyConflict(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	idempItem := map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: "key-1"},
		"order_id":        &types.AttributeValueMemberS{Value: "o1"},
	}
	if err := store.Create(ctx, Order{ID: "o1"}, "idempotency", idempItem, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	retry := map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: "key-1"},
		"order_id":        &types.AttributeValueMemberS{Value: "o2"},
	}
	err := store.Create(ctx, Order{ID: "o2"}, "idempotency", retry, nil)
	if !errors.Is(err, ErrIdempotencyConflict) {
		t.Fatalf("retried Create = %v, want ErrIdempotencyConflict", err)
	}
	// The whole transaction is cancelled: no second order row.
	if fake.Item("orders", "o2") != nil {
		t.Error("retried create persisted a second order")
	}
}

func TestCreateUsageConflictLeavesNoOrder(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	offerStore := offers.NewStore(fake, "offers", "offer_usage")

	offer := offers.Offer{ID: "off-1", OneTimePerUser: true}
	customer := offers.Customer{ID: "c1"}
	if err := offerStore.RecordUsage(ctx, &offer, customer); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	usageItems, err := offerStore.UsageTransactItems(&offer, customer)
	if err != nil {
		t.Fatalf("UsageTransactItems: %v", err)
	}
	err = store.Create(ctx, Order{ID: "o1"}, "", nil, usageItems)
	if !errors.Is(err, ErrUsageConflict) {
		t.Fatalf("Create = %v, want ErrUsageConflict", err)
	}
	if fake.Item("orders", "o1") != nil {
		t.Error("order persisted despite usage conflict")
	}
}

func TestGetNotFoundAndRetry(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	o, err := store.Get(ctx, "missing")
	if err != nil || o != nil {
		t.Errorf("Get(missing) = (%v, %v), want (nil, nil)", o, err)
	}

	if err := store.Create(ctx, Order{ID: "o1"}, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fake.FailNextGets = 1
	o, err = store.Get(ctx, "o1")
	if err != nil || o == nil {
		t.Errorf("Get after transient fault = (%v, %v), want order", o, err)
	}
}

func TestUpdateStatusCAS(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Order{ID: "o1", Status: StatusPending}, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.UpdateStatus(ctx, "o1", StatusPending, StatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// A second writer holding the stale pending read loses the race.
	err := store.UpdateStatus(ctx, "o1", StatusPending, StatusCancelled)
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("stale UpdateStatus = %v, want ErrStatusConflict", err)
	}

	got, _ := store.Get(ctx, "o1")
	if got.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
}

func TestAssignMissingOrder(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Assign(context.Background(), "missing", "w1")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Assign(missing) = %v, want ErrOrderNotFound", err)
	}
}

func TestAssignSetsWorker(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Order{ID: "o1", Status: StatusConfirmed}, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Assign(ctx, "o1", "w1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, _ := store.Get(ctx, "o1")
	if got.AssignedTo == nil || *got.AssignedTo != "w1" {
		t.Errorf("assigned_to = %v, want w1", got.AssignedTo)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("Assign changed status to %s", got.Status)
	}
}

func TestUpdateRefundRequiresCancelled(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, Order{ID: "o1", Status: StatusShipped}, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.UpdateRefund(ctx, "o1", nil, RefundStarted, "ref-1", "")
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("UpdateRefund on live order = %v, want ErrStatusConflict", err)
	}

	if err := store.Create(ctx, Order{ID: "o2", Status: StatusCancelled}, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.UpdateRefund(ctx, "o2", nil, RefundStarted, "ref-1", "customer request"); err != nil {
		t.Fatalf("UpdateRefund: %v", err)
	}
	got, _ := store.Get(ctx, "o2")
	if got.RefundStatus == nil || *got.RefundStatus != RefundStarted {
		t.Errorf("refund_status = %v, want started", got.RefundStatus)
	}
	if got.RefundReference != "ref-1" {
		t.Errorf("refund_reference = %q, want ref-1", got.RefundReference)
	}
}

func TestUpdateRefundConditionalOnCurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	order := Order{ID: "o1", Status: StatusCancelled, PaymentMethod: PaymentRazorpay, PaymentStatus: PaymentStatusPaid}
	if err := store.Create(ctx, order, "", nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.UpdateRefund(ctx, "o1", nil, RefundStarted, "ref-1", ""); err != nil {
		t.Fatalf("start refund: %v", err)
	}
	if err := store.UpdateRefund(ctx, "o1", str(RefundStarted), RefundProcessing, "ref-1", ""); err != nil {
		t.Fatalf("advance refund: %v", err)
	}

	// A second admin holding the started view cannot regress the sub-flow.
	err := store.UpdateRefund(ctx, "o1", str(RefundStarted), RefundProcessing, "ref-2", "")
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("stale expected-status write = %v, want ErrStatusConflict", err)
	}
	err = store.UpdateRefund(ctx, "o1", nil, RefundStarted, "ref-2", "")
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("stale first-edge write = %v, want ErrStatusConflict", err)
	}

	got, err := store.Get(ctx, "o1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RefundStatus == nil || *got.RefundStatus != RefundProcessing {
		t.Errorf("refund_status = %v, want processing after rejected stale writes", got.RefundStatus)
	}
	if got.RefundReference != "ref-1" {
		t.Errorf("refund_reference = %q, stale write must not land", got.RefundReference)
	}
}
