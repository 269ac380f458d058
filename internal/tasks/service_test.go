package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/auth"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/orders"
)

type stubOrders struct {
	byID map[string]*orders.Order
}

func (s *stubOrders) Get(ctx context.Context, id string) (*orders.Order, error) {
	return s.byID[id], nil
}

func strp(v string) *string { return &v }

var (
	supervisor = auth.Actor{ID: "s1", Role: auth.RoleSupervisor}
	worker     = auth.Actor{ID: "w1", Role: auth.RoleWorker}
)

func newTestService(t *testing.T) (*Service, *stubOrders) {
	t.Helper()
	store, _ := newTestStore(t)
	dir := &stubOrders{byID: map[string]*orders.Order{
		"o1": {ID: "o1", Status: orders.StatusProcessing, AssignedTo: strp("w1")},
	}}
	svc := NewService(store, dir)
	svc.nowFunc = func() time.Time { return taskNow }
	seq := 0
	svc.newID = func() string {
		seq++
		return "task-" + string(rune('a'+seq-1))
	}
	return svc, dir
}

func TestCreateRequiresElevatedRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "o1", TypePacking, "", "", worker)
	if !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("worker Create = %v, want ErrForbidden", err)
	}
}

func TestCreatePrerequisites(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	dir.byID["pending"] = &orders.Order{ID: "pending", Status: orders.StatusPending, AssignedTo: strp("w1")}
	dir.byID["done"] = &orders.Order{ID: "done", Status: orders.StatusDelivered, AssignedTo: strp("w1")}
	dir.byID["unassigned"] = &orders.Order{ID: "unassigned", Status: orders.StatusProcessing}

	tests := []struct {
		name    string
		orderID string
		typ     string
		wantErr error
	}{
		{"unknown task type", "o1", "gift_wrap", orders.ErrPrerequisiteNotMet},
		{"order missing", "nope", TypePacking, orders.ErrOrderNotFound},
		{"order still pending", "pending", TypePacking, orders.ErrPrerequisiteNotMet},
		{"order terminal", "done", TypePacking, orders.ErrPrerequisiteNotMet},
		{"order unassigned", "unassigned", TypePacking, orders.ErrPrerequisiteNotMet},
		{"quality check before packing done", "o1", TypeQualityCheck, orders.ErrPrerequisiteNotMet},
		{"shipping prep before quality check", "o1", TypeShippingPrep, orders.ErrPrerequisiteNotMet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.orderID, tt.typ, "", "", supervisor)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateDefaultsFromOrder(t *testing.T) {
	svc, _ := newTestService(t)
	task, err := svc.Create(context.Background(), "o1", TypePacking, "", "", supervisor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.AssignedTo != "w1" {
		t.Errorf("assigned_to = %s, want the order's worker w1", task.AssignedTo)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("priority = %s, want medium default", task.Priority)
	}
	if task.Status != StatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
}

func TestCreateReplayReturnsExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "o1", TypePacking, "w1", PriorityHigh, supervisor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, "o1", TypePacking, "w2", PriorityLow, supervisor)
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay returned id %s, want original %s", second.ID, first.ID)
	}
	if second.AssignedTo != "w1" || second.Priority != PriorityHigh {
		t.Errorf("replay returned %s/%s, the original row must win", second.AssignedTo, second.Priority)
	}
}

func TestCreateStepChain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "o1", TypePacking, "", "", supervisor); err != nil {
		t.Fatalf("create packing: %v", err)
	}
	if _, err := svc.Create(ctx, "o1", TypeQualityCheck, "", "", supervisor); !errors.Is(err, orders.ErrPrerequisiteNotMet) {
		t.Fatalf("quality_check before packing completes = %v, want ErrPrerequisiteNotMet", err)
	}

	if _, err := svc.UpdateStatus(ctx, "o1", TypePacking, StatusCompleted, supervisor); err != nil {
		t.Fatalf("complete packing: %v", err)
	}
	if _, err := svc.Create(ctx, "o1", TypeQualityCheck, "", "", supervisor); err != nil {
		t.Fatalf("create quality_check: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "o1", TypeQualityCheck, StatusCompleted, supervisor); err != nil {
		t.Fatalf("complete quality_check: %v", err)
	}
	if _, err := svc.Create(ctx, "o1", TypeShippingPrep, "", "", supervisor); err != nil {
		t.Fatalf("create shipping_prep: %v", err)
	}
}

func TestUpdateStatusWorkerOwnership(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	dir.byID["o2"] = &orders.Order{ID: "o2", Status: orders.StatusProcessing, AssignedTo: strp("w9")}

	if _, err := svc.Create(ctx, "o1", TypePacking, "", "", supervisor); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "o2", TypePacking, "", "", supervisor); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, "o1", TypePacking, StatusInProgress, worker); err != nil {
		t.Errorf("owning worker update: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "o2", TypePacking, StatusInProgress, worker); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("foreign worker update = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.UpdateStatus(ctx, "o1", "gift_wrap", StatusCompleted, supervisor); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("unknown type = %v, want ErrTaskNotFound", err)
	}
	if _, err := svc.UpdateStatus(ctx, "o1", TypePacking, "paused", supervisor); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("unknown status = %v, want ErrTaskNotFound", err)
	}
}

func TestProgressLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Progress(ctx, "o1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.Percent != 0 || p.CurrentStep == nil || p.CurrentStep.Type != TypePacking {
		t.Errorf("empty progress = %d%%/%v", p.Percent, p.CurrentStep)
	}

	if _, err := svc.Create(ctx, "o1", TypePacking, "", "", supervisor); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "o1", TypePacking, StatusCompleted, supervisor); err != nil {
		t.Fatalf("complete: %v", err)
	}

	p, err = svc.Progress(ctx, "o1")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.Percent != 33 {
		t.Errorf("percent = %d, want 33", p.Percent)
	}
	if p.CurrentStep == nil || p.CurrentStep.Type != TypeQualityCheck {
		t.Errorf("current step = %v, want quality_check", p.CurrentStep)
	}
	if p.NextStep == nil || p.NextStep.Type != TypeShippingPrep {
		t.Errorf("next step = %v, want shipping_prep", p.NextStep)
	}
}

func TestStepStartedAndCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	started, err := svc.StepStarted(ctx, "o1", TypePacking)
	if err != nil || started {
		t.Errorf("StepStarted before create = (%v, %v), want (false, nil)", started, err)
	}
	if _, err := svc.Create(ctx, "o1", TypePacking, "", "", supervisor); err != nil {
		t.Fatalf("create: %v", err)
	}
	started, err = svc.StepStarted(ctx, "o1", TypePacking)
	if err != nil || !started {
		t.Errorf("StepStarted after create = (%v, %v), want (true, nil)", started, err)
	}

	done, err := svc.StepCompleted(ctx, "o1", TypePacking)
	if err != nil || done {
		t.Errorf("StepCompleted before completion = (%v, %v), want (false, nil)", done, err)
	}
	if _, err := svc.UpdateStatus(ctx, "o1", TypePacking, StatusCompleted, supervisor); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, err = svc.StepCompleted(ctx, "o1", TypePacking)
	if err != nil || !done {
		t.Errorf("StepCompleted after completion = (%v, %v), want (true, nil)", done, err)
	}
}
