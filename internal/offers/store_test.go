package offers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *testutil.FakeDynamo) {
	t.Helper()
	fake := testutil.NewFakeDynamo(map[string][]string{
		"offers":      {"id"},
		"offer_usage": {"offer_id", "customer_ref"},
	})
	store := NewStore(fake, "offers", "offer_usage")
	store.nowFunc = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return store, fake
}

func seedOffer(t *testing.T, fake *testutil.FakeDynamo, o Offer) {
	t.Helper()
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		t.Fatalf("marshal offer: %v", err)
	}
	fake.Seed("offers", item)
}

func TestStoreGetNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	o, err := store.Get(context.Background(), "missing")
	if err != nil || o != nil {
		t.Errorf("Get(missing) = (%v, %v), want (nil, nil)", o, err)
	}
}

func TestStoreGetRetriesOnce(t *testing.T) {
	store, fake := newTestStore(t)
	seedOffer(t, fake, Offer{ID: "off-1", DiscountType: DiscountFixed, DiscountValue: 50})
	fake.FailNextGets = 1

	o, err := store.Get(context.Background(), "off-1")
	if err != nil {
		t.Fatalf("Get after transient fault: %v", err)
	}
	if o == nil || o.ID != "off-1" {
		t.Errorf("Get = %v, want offer off-1", o)
	}
	if fake.GetCalls != 2 {
		t.Errorf("GetItem called %d times, want 2", fake.GetCalls)
	}
}

func TestStoreGetByCodeNormalizes(t *testing.T) {
	store, fake := newTestStore(t)
	seedOffer(t, fake, Offer{ID: "off-1", Code: "SAVE10", DiscountType: DiscountPercentage, DiscountValue: 10})

	o, err := store.GetByCode(context.Background(), "  save10 ")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if o == nil || o.ID != "off-1" {
		t.Errorf("GetByCode = %v, want offer off-1", o)
	}

	o, err = store.GetByCode(context.Background(), "NOPE")
	if err != nil || o != nil {
		t.Errorf("GetByCode(NOPE) = (%v, %v), want (nil, nil)", o, err)
	}
}

func TestStorePutRejectsDuplicateCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := Offer{ID: "off-1", Code: "welcome", DiscountType: DiscountFixed, DiscountValue: 100,
		ValidFrom: time.Now(), ValidUntil: time.Now().Add(time.Hour), IsActive: true}
	if err := store.Put(ctx, &first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if first.Code != "WELCOME" {
		t.Errorf("Put stored code %q, want normalized WELCOME", first.Code)
	}

	second := Offer{ID: "off-2", Code: " WELCOME ", DiscountType: DiscountFixed, DiscountValue: 100}
	if err := store.Put(ctx, &second); !errors.Is(err, ErrCodeExists) {
		t.Errorf("Put duplicate code = %v, want ErrCodeExists", err)
	}
}

func TestStorePutReservesCodeTransactionally(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	first := Offer{ID: "off-1", Code: "WELCOME", DiscountType: DiscountFixed, DiscountValue: 100, IsActive: true}
	if err := store.Put(ctx, &first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// One row for the offer, one reserving its code.
	if fake.Len("offers") != 2 {
		t.Fatalf("offers table has %d rows, want offer + code reservation", fake.Len("offers"))
	}

	second := Offer{ID: "off-2", Code: "WELCOME", DiscountType: DiscountFixed, DiscountValue: 50}
	if err := store.Put(ctx, &second); !errors.Is(err, ErrCodeExists) {
		t.Fatalf("Put duplicate code = %v, want ErrCodeExists", err)
	}
	if fake.Len("offers") != 2 {
		t.Errorf("failed Put left %d rows, want 2 (no partial writes)", fake.Len("offers"))
	}
	if fake.Item("offers", "off-2") != nil {
		t.Error("offer row landed despite code conflict")
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "off-1" {
		t.Errorf("List returned %d offers, want only off-1 with reservation rows hidden", len(listed))
	}
}

func TestCustomerRef(t *testing.T) {
	if got := CustomerRef(Customer{ID: "c1", Email: "a@b.com"}); got != "id#c1" {
		t.Errorf("CustomerRef = %q, id must win over email", got)
	}
	if got := CustomerRef(Customer{Email: "A@B.com"}); got != "email#a@b.com" {
		t.Errorf("CustomerRef = %q, want lowercased email ref", got)
	}
}

func TestUsageExistsChecksBothRefs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	offer := Offer{ID: "off-1", OneTimePerUser: true}

	// Redeemed under email only (e.g. before the customer had an account id).
	if err := store.RecordUsage(ctx, &offer, Customer{Email: "a@b.com"}); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	used, err := store.UsageExists(ctx, "off-1", Customer{ID: "c1", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("UsageExists: %v", err)
	}
	if !used {
		t.Error("UsageExists = false, want true via email fallback")
	}

	used, err = store.UsageExists(ctx, "off-1", Customer{ID: "c1", Email: "other@b.com"})
	if err != nil {
		t.Fatalf("UsageExists: %v", err)
	}
	if used {
		t.Error("UsageExists = true for a different customer")
	}
}

func TestRecordUsageExactlyOnce(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	seedOffer(t, fake, Offer{ID: "off-1", OneTimePerUser: true, UsedCount: 0})
	offer := Offer{ID: "off-1", OneTimePerUser: true}
	customer := Customer{ID: "c1"}

	if err := store.RecordUsage(ctx, &offer, customer); err != nil {
		t.Fatalf("first RecordUsage: %v", err)
	}
	if err := store.RecordUsage(ctx, &offer, customer); !errors.Is(err, ErrAlreadyUsed) {
		t.Errorf("second RecordUsage = %v, want ErrAlreadyUsed", err)
	}

	// The failed retry must not bump the counter.
	stored, err := store.Get(ctx, "off-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.UsedCount != 1 {
		t.Errorf("used_count = %d, want 1", stored.UsedCount)
	}
}

func TestRecordUsageMultiUseOfferIncrementsOnly(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	seedOffer(t, fake, Offer{ID: "off-1", OneTimePerUser: false})
	offer := Offer{ID: "off-1", OneTimePerUser: false}

	for i := 0; i < 3; i++ {
		if err := store.RecordUsage(ctx, &offer, Customer{ID: "c1"}); err != nil {
			t.Fatalf("RecordUsage #%d: %v", i+1, err)
		}
	}
	stored, err := store.Get(ctx, "off-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.UsedCount != 3 {
		t.Errorf("used_count = %d, want 3", stored.UsedCount)
	}
	if fake.Len("offer_usage") != 0 {
		t.Errorf("multi-use offer wrote %d usage rows, want 0", fake.Len("offer_usage"))
	}
}
