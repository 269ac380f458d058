package idempotency

import "time"

// Record is the shape persisted in the idempotency table. One record per
// create-order attempt; its conditional put rides inside the order creation
// transaction so a retried call can never double-apply offer usage or
// allocate a second order.
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	OrderID        string    `dynamodbav:"order_id"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}
