package orders

import (
	"time"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/offers"
)

// Order statuses. The forward path is linear; cancelled is reachable from
// any non-terminal state. delivered and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusPacking    = "packing"
	StatusPacked     = "packed"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Payment methods
const (
	PaymentRazorpay = "razorpay"
	PaymentCOD      = "cod"
	PaymentUPI      = "upi"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Refund sub-flow statuses, meaningful only on cancelled, paid, non-COD orders.
const (
	RefundStarted    = "started"
	RefundProcessing = "processing"
	RefundCompleted  = "completed"
	RefundFailed     = "failed"
)

// Order represents the item stored in the orders table. Attribute names are
// the wire contract: refund reconciliation and reporting key off them
// literally.
type Order struct {
	ID          string `dynamodbav:"id" json:"id"`
	OrderNumber string `dynamodbav:"order_number" json:"order_number"`

	CustomerID      string `dynamodbav:"customer_id" json:"customer_id"`
	CustomerEmail   string `dynamodbav:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerName    string `dynamodbav:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerPhone   string `dynamodbav:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	ShippingAddress string `dynamodbav:"shipping_address,omitempty" json:"shipping_address,omitempty"`

	Subtotal float64  `dynamodbav:"subtotal" json:"subtotal"`
	Shipping float64  `dynamodbav:"shipping" json:"shipping"`
	Discount *float64 `dynamodbav:"discount,omitempty" json:"discount,omitempty"`
	Total    float64  `dynamodbav:"total" json:"total"`

	Status        string `dynamodbav:"status" json:"status"`
	PaymentMethod string `dynamodbav:"payment_method" json:"payment_method"`
	PaymentStatus string `dynamodbav:"payment_status" json:"payment_status"`

	// AssignedTo is the worker identity; absent until a staff member assigns
	// the order.
	AssignedTo *string `dynamodbav:"assigned_to,omitempty" json:"assigned_to,omitempty"`

	// OfferID and Discount are frozen at creation time and never recomputed
	// from the live offer.
	OfferID *string `dynamodbav:"offer_id,omitempty" json:"offer_id,omitempty"`

	RefundStatus    *string `dynamodbav:"refund_status,omitempty" json:"refund_status,omitempty"`
	RefundReference string  `dynamodbav:"refund_reference,omitempty" json:"refund_reference,omitempty"`
	RefundNotes     string  `dynamodbav:"refund_notes,omitempty" json:"refund_notes,omitempty"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// ComputeTotal returns max(0, subtotal + shipping - discount), rounded to
// cents.
func ComputeTotal(subtotal, shipping float64, discount *float64) float64 {
	total := subtotal + shipping
	if discount != nil {
		total -= *discount
	}
	if total < 0 {
		total = 0
	}
	return offers.Round2(total)
}

// RefundEligible reports whether the order qualifies for the refund
// sub-flow. Derived from state, never stored.
func (o *Order) RefundEligible() bool {
	return o.Status == StatusCancelled &&
		o.PaymentStatus == PaymentStatusPaid &&
		o.PaymentMethod != PaymentCOD
}

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentRazorpay, PaymentCOD, PaymentUPI:
		return true
	}
	return false
}

// ValidRefundStatus reports whether s is a known refund sub-flow status.
func ValidRefundStatus(s string) bool {
	switch s {
	case RefundStarted, RefundProcessing, RefundCompleted, RefundFailed:
		return true
	}
	return false
}
