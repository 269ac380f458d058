package offers

import (
	"strings"
	"time"
)

// Discount types
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Offer is a discount rule stored in the offers table. Field names are the
// wire contract: external reporting keys off them literally.
type Offer struct {
	ID            string  `dynamodbav:"id" json:"id"`
	Code          string  `dynamodbav:"code,omitempty" json:"code,omitempty"`
	Description   string  `dynamodbav:"description,omitempty" json:"description,omitempty"`
	DiscountType  string  `dynamodbav:"discount_type" json:"discount_type"` // percentage | fixed
	DiscountValue float64 `dynamodbav:"discount_value" json:"discount_value"`
	// MaxDiscount caps percentage discounts; nil means uncapped.
	MaxDiscount    *float64 `dynamodbav:"max_discount,omitempty" json:"max_discount,omitempty"`
	MinOrderAmount *float64 `dynamodbav:"min_order_amount,omitempty" json:"min_order_amount,omitempty"`

	// Audience scoping. An offer is either unscoped (all fields empty) or
	// targeted at the union of these legacy fields. Internal logic goes
	// through Audience(), not these fields.
	CustomerEmail  string   `dynamodbav:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerEmails []string `dynamodbav:"customer_emails,omitempty" json:"customer_emails,omitempty"`
	CustomerID     string   `dynamodbav:"customer_id,omitempty" json:"customer_id,omitempty"`
	CustomerIDs    []string `dynamodbav:"customer_ids,omitempty" json:"customer_ids,omitempty"`

	ValidFrom  time.Time `dynamodbav:"valid_from" json:"valid_from"`
	ValidUntil time.Time `dynamodbav:"valid_until" json:"valid_until"`
	IsActive   bool      `dynamodbav:"is_active" json:"is_active"`

	// UsageLimit is the global redemption cap; nil means unlimited.
	// UsedCount is only approximately enforced against it (see validator).
	UsageLimit     *int `dynamodbav:"usage_limit,omitempty" json:"usage_limit,omitempty"`
	UsedCount      int  `dynamodbav:"used_count" json:"used_count"`
	OneTimePerUser bool `dynamodbav:"one_time_per_user" json:"one_time_per_user"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// Usage is one append-only redemption record. Its existence is the hard
// "already used" signal for one-time-per-user offers, independent of
// used_count.
type Usage struct {
	OfferID       string    `dynamodbav:"offer_id" json:"offer_id"`         // PK
	CustomerRef   string    `dynamodbav:"customer_ref" json:"customer_ref"` // SK: id#<id> or email#<email>
	CustomerID    string    `dynamodbav:"customer_id,omitempty" json:"customer_id,omitempty"`
	CustomerEmail string    `dynamodbav:"customer_email,omitempty" json:"customer_email,omitempty"`
	UsedAt        time.Time `dynamodbav:"used_at" json:"used_at"`
}

// Customer identifies the redeeming customer. ID is authoritative; Email is
// the fallback since emails can be re-used across login methods.
type Customer struct {
	ID    string
	Email string
}

// NormalizeCode canonicalizes a redemption code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Audience is the collapsed form of the four legacy targeting fields:
// either everyone, or a set of customer ids and emails.
type Audience struct {
	scoped bool
	ids    map[string]struct{}
	emails map[string]struct{}
}

// Audience collapses the offer's targeting fields into one matcher.
func (o *Offer) Audience() Audience {
	a := Audience{
		ids:    map[string]struct{}{},
		emails: map[string]struct{}{},
	}
	if o.CustomerID != "" {
		a.ids[o.CustomerID] = struct{}{}
	}
	for _, id := range o.CustomerIDs {
		if id != "" {
			a.ids[id] = struct{}{}
		}
	}
	if o.CustomerEmail != "" {
		a.emails[strings.ToLower(o.CustomerEmail)] = struct{}{}
	}
	for _, e := range o.CustomerEmails {
		if e != "" {
			a.emails[strings.ToLower(e)] = struct{}{}
		}
	}
	a.scoped = len(a.ids) > 0 || len(a.emails) > 0
	return a
}

// Matches reports whether the customer is in the audience. Unscoped
// audiences match everyone; scoped ones match on id or email.
func (a Audience) Matches(c Customer) bool {
	if !a.scoped {
		return true
	}
	if c.ID != "" {
		if _, ok := a.ids[c.ID]; ok {
			return true
		}
	}
	if c.Email != "" {
		if _, ok := a.emails[strings.ToLower(c.Email)]; ok {
			return true
		}
	}
	return false
}
