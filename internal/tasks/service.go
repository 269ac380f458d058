package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/auth"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/orders"
)

// OrderDirectory is the read-only view of orders the task service needs for
// its prerequisite checks.
type OrderDirectory interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

// Service validates and persists fulfillment tasks. Task creation is
// decoupled from the order state machine: each step is created by an
// explicit supervisor action, never auto-chained.
type Service struct {
	store   *Store
	orders  OrderDirectory
	nowFunc func() time.Time
	newID   func() string
}

// NewService wires the task service.
func NewService(store *Store, orderDir OrderDirectory) *Service {
	return &Service{
		store:   store,
		orders:  orderDir,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
}

// Progress is the workflow view for one order.
type Progress struct {
	Tasks       []Task `json:"tasks"`
	Percent     int    `json:"progress_percent"`
	CurrentStep *Step  `json:"current_step,omitempty"`
	NextStep    *Step  `json:"next_step,omitempty"`
}

// Create creates the task for (orderID, taskType) if all prerequisites hold:
// the caller is elevated, the order exists, is confirmed and assigned to a
// worker, and the prior workflow step (if any) is completed. Creation is
// idempotent per (order_id, type): a replay returns the existing task.
func (s *Service) Create(ctx context.Context, orderID, taskType, workerID, priority string, actor auth.Actor) (*Task, error) {
	if !actor.Elevated() {
		return nil, auth.ErrForbidden
	}
	step := StepFor(taskType)
	if step == nil {
		return nil, orders.ErrPrerequisiteNotMet
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, orders.ErrPrerequisiteNotMet
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orders.ErrOrderNotFound
	}
	// Tasks only make sense once an order is confirmed, assigned, and still live.
	if order.Status == orders.StatusPending || orders.IsTerminal(order.Status) {
		return nil, orders.ErrPrerequisiteNotMet
	}
	if order.AssignedTo == nil {
		return nil, orders.ErrPrerequisiteNotMet
	}
	if workerID == "" {
		workerID = *order.AssignedTo
	}

	if step.Order > 1 {
		existing, err := s.store.ListByOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		prior := Steps[step.Order-2]
		if !IsStepCompleted(prior.Type, existing) {
			return nil, orders.ErrPrerequisiteNotMet
		}
	}

	task := Task{
		OrderID:    orderID,
		Type:       taskType,
		ID:         s.newID(),
		Status:     StatusPending,
		AssignedTo: workerID,
		Priority:   priority,
		CreatedAt:  s.nowFunc(),
		UpdatedAt:  s.nowFunc(),
	}
	created, err := s.store.CreateIfAbsent(ctx, task)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.store.Get(ctx, orderID, taskType)
	}
	return &task, nil
}

// UpdateStatus moves a task between statuses. Workers may only touch tasks
// on orders assigned to them; completed_at is set exactly once by the store.
func (s *Service) UpdateStatus(ctx context.Context, orderID, taskType, status string, actor auth.Actor) (*Task, error) {
	if !ValidType(taskType) || !ValidStatus(status) {
		return nil, ErrTaskNotFound
	}
	if actor.Role == auth.RoleWorker {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, orders.ErrOrderNotFound
		}
		if order.AssignedTo == nil || *order.AssignedTo != actor.ID {
			return nil, auth.ErrForbidden
		}
	}
	if err := s.store.UpdateStatus(ctx, orderID, taskType, status); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, orderID, taskType)
}

// Progress computes the workflow view from the persisted tasks. Pure
// function of the task rows, so status guards and the staff UI agree.
func (s *Service) Progress(ctx context.Context, orderID string) (*Progress, error) {
	list, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	p := &Progress{
		Tasks:       list,
		Percent:     ProgressPercent(list),
		CurrentStep: CurrentStep(list),
	}
	if p.CurrentStep != nil {
		p.NextStep = NextStep(p.CurrentStep.Type)
	}
	return p, nil
}

// StepStarted reports whether a task of the given step type exists at all.
// Used by the order state machine on the processing->packing edge.
func (s *Service) StepStarted(ctx context.Context, orderID, step string) (bool, error) {
	t, err := s.store.Get(ctx, orderID, step)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// StepCompleted reports whether the given step shows completed. Used by the
// order state machine on the packing->packed edge.
func (s *Service) StepCompleted(ctx context.Context, orderID, step string) (bool, error) {
	list, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	return IsStepCompleted(step, list), nil
}
