package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// Non-COD orders must arrive with a confirmed payment: the engine only
	// consumes the gateway's confirmation signal, so an unconfirmed prepaid
	// request is malformed, not merely pending.
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	if req.PaymentMethod != "cod" && !req.PaymentConfirmed {
		sl.ReportError(req.PaymentConfirmed, "payment_confirmed", "PaymentConfirmed", "payment_confirmed_required", "")
	}
}
