package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
)

var (
	// ErrOrderNotFound indicates the order id has no persisted row.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict indicates the conditional status write lost a race:
	// the persisted status no longer matches what the caller read. The
	// caller must re-derive intent from the latest state before retrying.
	ErrStatusConflict = errors.New("status conflict: persisted status changed")
	// ErrOrderExists indicates an id collision on create.
	ErrOrderExists = errors.New("order already exists")
	// ErrIdempotencyConflict indicates the creation transaction was already
	// performed under the same idempotency key.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	// ErrUsageConflict indicates the offer-usage uniqueness write inside the
	// creation transaction failed: this customer already redeemed the offer.
	ErrUsageConflict = errors.New("offer usage conflict")
)

// Store encapsulates operations on the orders table and the order-number
// counter.
type Store struct {
	client        aws.DynamoDBAPI
	tableName     string
	countersTable string
	nowFunc       func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName, countersTable string) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		countersTable: countersTable,
		nowFunc:       time.Now,
	}
}

// NextOrderNumber allocates the next human-facing order number for the year,
// format ORD-<year>-<sequence>. The sequence comes from an atomic ADD on the
// counters table, never from counting existing orders, so concurrent
// creations cannot collide.
func (s *Store) NextOrderNumber(ctx context.Context, t time.Time) (string, error) {
	year := t.Year()
	name := fmt.Sprintf("orders#%d", year)
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.countersTable,
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression: awsString("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return "", fmt.Errorf("increment order counter: %w", err)
	}
	seqAttr, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("counter %s returned no seq attribute", name)
	}
	seq, err := strconv.ParseInt(seqAttr.Value, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse counter seq %q: %w", seqAttr.Value, err)
	}
	return fmt.Sprintf("ORD-%d-%05d", year, seq), nil
}

// Create persists the order in a single TransactWriteItems call, together
// with an optional idempotency record and the offer-usage items the offers
// store builds. Either everything lands or nothing does: a failed usage
// uniqueness check cancels the order put, so no partial order is ever
// created.
func (s *Store) Create(ctx context.Context, order Order, idempotencyTable string, idempotencyItem map[string]types.AttributeValue, usageItems []types.TransactWriteItem) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	// Item order matters: cancellation reasons come back positionally.
	transactItems := []types.TransactWriteItem{}
	idempIndex, orderIndex := -1, -1
	if idempotencyItem != nil {
		idempIndex = len(transactItems)
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           &idempotencyTable,
				Item:                idempotencyItem,
				ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
			},
		})
	}
	orderIndex = len(transactItems)
	transactItems = append(transactItems, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           &s.tableName,
			Item:                orderMap,
			ConditionExpression: awsString("attribute_not_exists(id)"),
		},
	})
	usageStart := len(transactItems)
	transactItems = append(transactItems, usageItems...)

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			switch {
			case i == idempIndex:
				return ErrIdempotencyConflict
			case i == orderIndex:
				return ErrOrderExists
			case i >= usageStart:
				return ErrUsageConflict
			}
		}
		return fmt.Errorf("create order transaction canceled: %w", err)
	}
	return fmt.Errorf("create order: %w", err)
}

// Get fetches an order by id. Returns (nil, nil) if not found. The read is
// retried once; reads are idempotent, writes never are.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	in := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	}
	out, err := s.client.GetItem(ctx, in)
	if err != nil && aws.RetryableRead(err) {
		out, err = s.client.GetItem(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// UpdateStatus conditionally moves the order from expected to next. The
// legality check collapses into this write: the condition re-checks the
// persisted status, so two racing transitions cannot both succeed against a
// stale read.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expected, next string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: next},
			":expected": &types.AttributeValueMemberS{Value: expected},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("#s = :expected"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusConflict
		}
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Assign sets assigned_to without touching status.
func (s *Store) Assign(ctx context.Context, orderID, workerID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression: awsString("SET assigned_to = :w, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":w":  &types.AttributeValueMemberS{Value: workerID},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("assign order: %w", err)
	}
	return nil
}

// UpdateRefund conditionally moves the refund sub-state from expected to
// refundStatus. The condition pins the order to cancelled and re-checks the
// persisted refund status, so a write derived from a stale read cannot
// regress the sub-flow. expected nil means the sub-flow has not started.
func (s *Store) UpdateRefund(ctx context.Context, orderID string, expected *string, refundStatus, reference, notes string) error {
	now := s.nowFunc()
	cond := "attribute_exists(id) AND #s = :cancelled AND attribute_not_exists(refund_status)"
	values := map[string]types.AttributeValue{
		":rs":        &types.AttributeValueMemberS{Value: refundStatus},
		":rr":        &types.AttributeValueMemberS{Value: reference},
		":rn":        &types.AttributeValueMemberS{Value: notes},
		":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":cancelled": &types.AttributeValueMemberS{Value: StatusCancelled},
	}
	if expected != nil {
		cond = "attribute_exists(id) AND #s = :cancelled AND refund_status = :rprev"
		values[":rprev"] = &types.AttributeValueMemberS{Value: *expected}
	}
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          awsString("SET refund_status = :rs, refund_reference = :rr, refund_notes = :rn, updated_at = :ua"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString(cond),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusConflict
		}
		return fmt.Errorf("update refund: %w", err)
	}
	return nil
}

func awsString(v string) *string { return &v }
