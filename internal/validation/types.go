package validation

// CreateOrderRequest is the payload for POST /orders. The caller supplies a
// payment_confirmed flag from the gateway integration; the engine never
// captures payments itself.
type CreateOrderRequest struct {
	CustomerID       string  `json:"customer_id" validate:"required"`
	CustomerEmail    string  `json:"customer_email" validate:"omitempty,email"`
	CustomerName     string  `json:"customer_name"`
	CustomerPhone    string  `json:"customer_phone"`
	ShippingAddress  string  `json:"shipping_address" validate:"required"`
	Subtotal         float64 `json:"subtotal" validate:"required,gt=0"`
	Shipping         float64 `json:"shipping" validate:"gte=0"`
	PaymentMethod    string  `json:"payment_method" validate:"required,oneof=razorpay cod upi"`
	PaymentConfirmed bool    `json:"payment_confirmed"`
	OfferCode        string  `json:"offer_code"`
}

// TransitionRequest is the payload for POST /orders/:id/status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing packing packed shipped delivered cancelled"`
}

// AssignRequest is the payload for POST /orders/:id/assign.
type AssignRequest struct {
	WorkerID string `json:"worker_id" validate:"required"`
}

// RefundRequest is the payload for POST /orders/:id/refund.
type RefundRequest struct {
	RefundStatus    string `json:"refund_status" validate:"required,oneof=started processing completed failed"`
	RefundReference string `json:"refund_reference"`
	Notes           string `json:"notes"`
}

// CreateTaskRequest is the payload for POST /orders/:id/tasks.
type CreateTaskRequest struct {
	Type       string `json:"type" validate:"required,oneof=packing quality_check shipping_prep"`
	AssignedTo string `json:"assigned_to"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateTaskRequest is the payload for PUT /orders/:id/tasks/:type.
type UpdateTaskRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

// ValidateOfferRequest is the payload for POST /offers/validate.
type ValidateOfferRequest struct {
	Code     string  `json:"code" validate:"required"`
	Subtotal float64 `json:"subtotal" validate:"required,gt=0"`
}

// CreateOfferRequest is the admin payload for POST /admin/offers.
type CreateOfferRequest struct {
	Code           string   `json:"code"`
	Description    string   `json:"description"`
	DiscountType   string   `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue  float64  `json:"discount_value" validate:"required,gt=0"`
	MaxDiscount    *float64 `json:"max_discount" validate:"omitempty,gt=0"`
	MinOrderAmount *float64 `json:"min_order_amount" validate:"omitempty,gt=0"`
	CustomerEmail  string   `json:"customer_email" validate:"omitempty,email"`
	CustomerEmails []string `json:"customer_emails" validate:"omitempty,dive,email"`
	CustomerID     string   `json:"customer_id"`
	CustomerIDs    []string `json:"customer_ids"`
	ValidFrom      string   `json:"valid_from" validate:"required"`
	ValidUntil     string   `json:"valid_until" validate:"required"`
	IsActive       bool     `json:"is_active"`
	UsageLimit     *int     `json:"usage_limit" validate:"omitempty,gt=0"`
	OneTimePerUser bool     `json:"one_time_per_user"`
}
