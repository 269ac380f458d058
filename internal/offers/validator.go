package offers

import (
	"context"
	"errors"
	"time"
)

// Validation failures. Each names the specific reason so the suggestion list
// and manual code entry can give consistent, actionable feedback.
var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrOfferInactive     = errors.New("offer is inactive")
	ErrOfferExpired      = errors.New("offer is outside its validity window")
	ErrMinOrderNotMet    = errors.New("order amount below offer minimum")
	ErrUsageLimitReached = errors.New("offer usage limit reached")
	ErrAlreadyUsed       = errors.New("offer already used by customer")
	ErrNotEligible       = errors.New("customer not eligible for offer")
)

// Validated is a successfully validated offer with its computed discount.
type Validated struct {
	Offer    *Offer
	Discount float64
}

// Validator runs the offer eligibility pipeline. Validation performs no
// mutation: usage is recorded only when an order is actually created from a
// validated offer.
type Validator struct {
	store   *Store
	nowFunc func() time.Time
}

// NewValidator returns a Validator backed by the given store.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store, nowFunc: time.Now}
}

// Validate checks a manually entered code against the full eligibility
// pipeline and returns the offer with its discount for the subtotal.
func (v *Validator) Validate(ctx context.Context, code string, subtotal float64, c Customer) (*Validated, error) {
	offer, err := v.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	if err := v.check(ctx, offer, subtotal, c); err != nil {
		return nil, err
	}
	return &Validated{Offer: offer, Discount: Compute(offer, subtotal)}, nil
}

// EligibleOffers returns every offer the customer could apply at this
// subtotal. It runs the identical pipeline as Validate minus the code
// lookup, so an offer shown as applicable never fails on apply.
func (v *Validator) EligibleOffers(ctx context.Context, c Customer, subtotal float64) ([]Validated, error) {
	all, err := v.store.List(ctx)
	if err != nil {
		return nil, err
	}
	eligible := make([]Validated, 0, len(all))
	for i := range all {
		offer := &all[i]
		if err := v.check(ctx, offer, subtotal, c); err != nil {
			continue
		}
		eligible = append(eligible, Validated{Offer: offer, Discount: Compute(offer, subtotal)})
	}
	return eligible, nil
}

// check runs the ordered eligibility checks shared by Validate and
// EligibleOffers.
func (v *Validator) check(ctx context.Context, o *Offer, subtotal float64, c Customer) error {
	if !o.IsActive {
		return ErrOfferInactive
	}
	now := v.nowFunc()
	if now.Before(o.ValidFrom) || now.After(o.ValidUntil) {
		return ErrOfferExpired
	}
	if o.MinOrderAmount != nil && subtotal < *o.MinOrderAmount {
		return ErrMinOrderNotMet
	}
	if o.UsageLimit != nil && o.UsedCount >= *o.UsageLimit {
		return ErrUsageLimitReached
	}
	if o.OneTimePerUser {
		used, err := v.store.UsageExists(ctx, o.ID, c)
		if err != nil {
			return err
		}
		if used {
			return ErrAlreadyUsed
		}
	}
	if !o.Audience().Matches(c) {
		return ErrNotEligible
	}
	return nil
}
