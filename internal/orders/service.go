package orders

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/auth"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/idempotency"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/offers"
)

var (
	// ErrPaymentNotConfirmed rejects non-COD creation without a confirmed
	// payment signal from the gateway.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	// ErrPrerequisiteNotMet indicates a fulfillment prerequisite (worker
	// assignment, prior workflow step) is missing.
	ErrPrerequisiteNotMet = errors.New("prerequisite not met")
	// ErrNotRefundEligible rejects refund updates on orders that are not
	// cancelled, paid, non-COD.
	ErrNotRefundEligible = errors.New("order is not refund eligible")
)

// Workflow step names shared with the tasks package.
const (
	stepPacking = "packing"
)

// WorkflowGuard exposes the task workflow completion state the state machine
// consults on the processing->packing and packing->packed edges. Implemented
// by the tasks service; kept as an interface here to avoid a package cycle.
type WorkflowGuard interface {
	StepStarted(ctx context.Context, orderID, step string) (bool, error)
	StepCompleted(ctx context.Context, orderID, step string) (bool, error)
}

// Service orchestrates order creation, status transitions, assignment and
// the refund sub-flow.
type Service struct {
	store          *Store
	offerStore     *offers.Store
	offerValidator *offers.Validator
	guard          WorkflowGuard
	idemp          *idempotency.Store
	publisher      *aws.Publisher
	metrics        *aws.Metrics
	nowFunc        func() time.Time
	newID          func() string
}

// NewService wires the order service. guard, idemp, publisher and metrics
// may be nil; the corresponding behavior is skipped.
func NewService(store *Store, offerStore *offers.Store, validator *offers.Validator, guard WorkflowGuard, idemp *idempotency.Store, publisher *aws.Publisher, metrics *aws.Metrics) *Service {
	return &Service{
		store:          store,
		offerStore:     offerStore,
		offerValidator: validator,
		guard:          guard,
		idemp:          idemp,
		publisher:      publisher,
		metrics:        metrics,
		nowFunc:        time.Now,
		newID:          uuid.NewString,
	}
}

// CreateInput is the checkout payload for order creation.
type CreateInput struct {
	CustomerID      string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	ShippingAddress string

	Subtotal float64
	Shipping float64

	PaymentMethod    string
	PaymentConfirmed bool

	OfferCode      string
	IdempotencyKey string
	CorrelationID  string
}

// Create validates the offer (if any), locks its discount into the order,
// allocates the order number, and persists everything in one transaction.
// Offer usage is recorded in that same transaction: exactly once, and only
// when the order is durably created. No partial order survives a validation
// or uniqueness failure.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if !ValidPaymentMethod(in.PaymentMethod) {
		return nil, errors.New("unknown payment method: " + in.PaymentMethod)
	}

	status := StatusPending
	paymentStatus := PaymentStatusPending
	if in.PaymentMethod != PaymentCOD {
		if !in.PaymentConfirmed {
			return nil, ErrPaymentNotConfirmed
		}
		status = StatusConfirmed
		paymentStatus = PaymentStatusPaid
	}

	customer := offers.Customer{ID: in.CustomerID, Email: in.CustomerEmail}

	var discount *float64
	var offerID *string
	var usageItems []types.TransactWriteItem
	if in.OfferCode != "" {
		validated, err := s.offerValidator.Validate(ctx, in.OfferCode, in.Subtotal, customer)
		if err != nil {
			return nil, err
		}
		d := validated.Discount
		discount = &d
		id := validated.Offer.ID
		offerID = &id
		usageItems, err = s.offerStore.UsageTransactItems(validated.Offer, customer)
		if err != nil {
			return nil, err
		}
	}

	now := s.nowFunc()
	number, err := s.store.NextOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	order := Order{
		ID:              s.newID(),
		OrderNumber:     number,
		CustomerID:      in.CustomerID,
		CustomerEmail:   in.CustomerEmail,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		Subtotal:        in.Subtotal,
		Shipping:        in.Shipping,
		Discount:        discount,
		Total:           ComputeTotal(in.Subtotal, in.Shipping, discount),
		Status:          status,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   paymentStatus,
		OfferID:         offerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var idempTable string
	var idempItem map[string]types.AttributeValue
	if in.IdempotencyKey != "" && s.idemp != nil {
		idempTable = s.idemp.TableName()
		idempItem, err = s.idemp.Item(in.IdempotencyKey, order.ID)
		if err != nil {
			return nil, err
		}
	}

	err = s.store.Create(ctx, order, idempTable, idempItem, usageItems)
	switch {
	case err == nil:
	case errors.Is(err, ErrUsageConflict):
		// Another checkout for the same customer won the usage row; the
		// discount is not granted and no order was written.
		return nil, offers.ErrAlreadyUsed
	case errors.Is(err, ErrIdempotencyConflict):
		return s.replay(ctx, in.IdempotencyKey)
	default:
		return nil, err
	}

	// Fire-and-forget collaborators; order creation never fails on them.
	if s.publisher != nil {
		if perr := s.publisher.PublishProfileUpsert(ctx, aws.ProfileUpsertMessage{
			CustomerID:    order.CustomerID,
			CustomerEmail: order.CustomerEmail,
			CustomerName:  order.CustomerName,
			CustomerPhone: order.CustomerPhone,
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
		}, in.CorrelationID); perr != nil {
			log.Printf("orders: profile upsert publish failed for %s: %v", order.ID, perr)
		}
	}
	s.metrics.Count(ctx, "OrderCreated", map[string]string{"payment_method": order.PaymentMethod})

	return &order, nil
}

// replay resolves a retried creation call to the order the first call made.
func (s *Service) replay(ctx context.Context, key string) (*Order, error) {
	rec, err := s.idemp.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrIdempotencyConflict
	}
	existing, err := s.store.Get(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrIdempotencyConflict
	}
	return existing, nil
}

// Get returns the order or ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// Transition validates and applies a status transition for the actor. The
// legality check is evaluated against the persisted status inside the
// conditional write, not only against the value read here.
func (s *Service) Transition(ctx context.Context, orderID, requested string, actor auth.Actor) (*Order, error) {
	if !ValidStatus(requested) {
		return nil, ErrIllegalTransition
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleWorker {
		if o.AssignedTo == nil || *o.AssignedTo != actor.ID {
			return nil, auth.ErrForbidden
		}
	}
	if err := CheckTransition(o.Status, requested); err != nil {
		return nil, err
	}
	if err := s.checkWorkflowGuard(ctx, o, requested); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, o.ID, o.Status, requested); err != nil {
		return nil, err
	}
	s.metrics.Count(ctx, "OrderStatusTransition", map[string]string{"status": requested})

	o.Status = requested
	o.UpdatedAt = s.nowFunc()
	return o, nil
}

// checkWorkflowGuard gates the packing edges on the task workflow: entering
// packing requires the packing task to exist, leaving it requires the
// packing step to be completed. Fulfillment cannot skip steps by writing
// statuses directly.
func (s *Service) checkWorkflowGuard(ctx context.Context, o *Order, requested string) error {
	if s.guard == nil {
		return nil
	}
	switch {
	case o.Status == StatusProcessing && requested == StatusPacking:
		started, err := s.guard.StepStarted(ctx, o.ID, stepPacking)
		if err != nil {
			return err
		}
		if !started {
			return ErrPrerequisiteNotMet
		}
	case o.Status == StatusPacking && requested == StatusPacked:
		done, err := s.guard.StepCompleted(ctx, o.ID, stepPacking)
		if err != nil {
			return err
		}
		if !done {
			return ErrPrerequisiteNotMet
		}
	}
	return nil
}

// Assign binds the order to a worker identity. Elevated roles only; status
// is untouched.
func (s *Service) Assign(ctx context.Context, orderID, workerID string, actor auth.Actor) (*Order, error) {
	if !actor.Elevated() {
		return nil, auth.ErrForbidden
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Assign(ctx, orderID, workerID); err != nil {
		return nil, err
	}
	o.AssignedTo = &workerID
	o.UpdatedAt = s.nowFunc()
	return o, nil
}

// UpdateRefund advances the refund sub-flow. Admin-only, never triggered
// automatically by cancellation, and only legal on refund-eligible orders.
func (s *Service) UpdateRefund(ctx context.Context, orderID, refundStatus, reference, notes string, actor auth.Actor) (*Order, error) {
	if !actor.Admin() {
		return nil, auth.ErrForbidden
	}
	if !ValidRefundStatus(refundStatus) {
		return nil, ErrIllegalTransition
	}
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.RefundEligible() {
		return nil, ErrNotRefundEligible
	}
	if err := checkRefundTransition(o.RefundStatus, refundStatus); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRefund(ctx, orderID, o.RefundStatus, refundStatus, reference, notes); err != nil {
		return nil, err
	}
	s.metrics.Count(ctx, "RefundUpdated", map[string]string{"refund_status": refundStatus})

	o.RefundStatus = &refundStatus
	o.RefundReference = reference
	o.RefundNotes = notes
	o.UpdatedAt = s.nowFunc()
	return o, nil
}

// checkRefundTransition enforces started -> processing -> completed|failed.
func checkRefundTransition(current *string, next string) error {
	switch {
	case current == nil:
		if next != RefundStarted {
			return ErrIllegalTransition
		}
	case *current == RefundStarted:
		if next != RefundProcessing {
			return ErrIllegalTransition
		}
	case *current == RefundProcessing:
		if next != RefundCompleted && next != RefundFailed {
			return ErrIllegalTransition
		}
	default:
		// completed and failed are terminal for the sub-flow.
		return ErrIllegalTransition
	}
	return nil
}
