package offers

import "math"

// Compute returns the discount amount for an offer applied to a subtotal.
// Percentage discounts are capped by max_discount when set; fixed discounts
// never exceed the subtotal, so totals cannot go negative. The result is
// rounded half-up to 2 decimals.
func Compute(o *Offer, subtotal float64) float64 {
	var d float64
	switch o.DiscountType {
	case DiscountPercentage:
		d = subtotal * o.DiscountValue / 100
		if o.MaxDiscount != nil && d > *o.MaxDiscount {
			d = *o.MaxDiscount
		}
	case DiscountFixed:
		d = o.DiscountValue
		if d > subtotal {
			d = subtotal
		}
	default:
		return 0
	}
	return Round2(d)
}

// Round2 rounds to 2 decimals, half-up.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
