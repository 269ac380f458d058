package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
)

const (
	codeIndex = "code-index"

	// Marker items keyed code#<CODE> live in the offers table and reserve a
	// redemption code for exactly one offer.
	codeMarkerPrefix = "code#"
)

// ErrCodeExists indicates an offer create collided on the redemption code.
var ErrCodeExists = errors.New("offer code already exists")

// Store encapsulates operations on the offers and offer_usage tables.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	usageTable string
	nowFunc    func() time.Time
}

// NewStore creates a new offers Store.
func NewStore(client aws.DynamoDBAPI, tableName, usageTable string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		usageTable: usageTable,
		nowFunc:    time.Now,
	}
}

// Get fetches an offer by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Offer, error) {
	out, err := s.getItemRetry(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Offer
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal offer: %w", err)
	}
	return &o, nil
}

// GetByCode fetches an offer by its normalized redemption code via the
// code GSI. Returns (nil, nil) if no offer carries the code.
func (s *Store) GetByCode(ctx context.Context, code string) (*Offer, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(codeIndex),
		KeyConditionExpression: awsString("code = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: code},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query offer by code: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Offer
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal offer: %w", err)
	}
	return &o, nil
}

// List returns all offers. The catalog is small (tens of rows), so a table
// scan is acceptable for the eligibility listing.
func (s *Store) List(ctx context.Context) ([]Offer, error) {
	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName: &s.tableName,
	})
	if err != nil {
		return nil, fmt.Errorf("scan offers: %w", err)
	}
	offers := make([]Offer, 0, len(out.Items))
	for _, item := range out.Items {
		if id, ok := item["id"].(*types.AttributeValueMemberS); ok && strings.HasPrefix(id.Value, codeMarkerPrefix) {
			continue
		}
		var o Offer
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// Put creates a new offer. The code, if present, is normalized before
// storage. A marker item keyed code#<CODE> is written in the same
// transaction as the offer, so two creates racing on one code cannot both
// land.
func (s *Store) Put(ctx context.Context, o *Offer) error {
	o.Code = NormalizeCode(o.Code)
	now := s.nowFunc()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}
	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                item,
				ConditionExpression: awsString("attribute_not_exists(id)"),
			},
		},
	}
	markerIndex := -1
	if o.Code != "" {
		markerIndex = len(items)
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.tableName,
				Item: map[string]types.AttributeValue{
					"id":       &types.AttributeValueMemberS{Value: codeMarkerPrefix + o.Code},
					"offer_id": &types.AttributeValueMemberS{Value: o.ID},
				},
				ConditionExpression: awsString("attribute_not_exists(id)"),
			},
		})
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for i, reason := range tce.CancellationReasons {
				if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
					continue
				}
				if i == markerIndex {
					return ErrCodeExists
				}
			}
			return fmt.Errorf("put offer transaction canceled: %w", err)
		}
		return fmt.Errorf("put offer: %w", err)
	}
	return nil
}

// CustomerRef builds the usage-record sort key for a customer. An id ref is
// authoritative; email is the fallback.
func CustomerRef(c Customer) string {
	if c.ID != "" {
		return "id#" + c.ID
	}
	return "email#" + strings.ToLower(c.Email)
}

// UsageExists reports whether a usage record exists for the customer,
// checking the id ref first and falling back to the email ref.
func (s *Store) UsageExists(ctx context.Context, offerID string, c Customer) (bool, error) {
	refs := make([]string, 0, 2)
	if c.ID != "" {
		refs = append(refs, "id#"+c.ID)
	}
	if c.Email != "" {
		refs = append(refs, "email#"+strings.ToLower(c.Email))
	}
	for _, ref := range refs {
		out, err := s.getItemRetry(ctx, &dyn.GetItemInput{
			TableName: &s.usageTable,
			Key: map[string]types.AttributeValue{
				"offer_id":     &types.AttributeValueMemberS{Value: offerID},
				"customer_ref": &types.AttributeValueMemberS{Value: ref},
			},
		})
		if err != nil {
			return false, fmt.Errorf("get offer usage: %w", err)
		}
		if len(out.Item) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// UsageTransactItems builds the transaction items that record one redemption:
// a uniqueness-constrained usage put (only for one-time-per-user offers) and
// an unconditional used_count increment. Callers append these to the order
// creation transaction so usage is recorded exactly when the order becomes
// durable.
func (s *Store) UsageTransactItems(o *Offer, c Customer) ([]types.TransactWriteItem, error) {
	items := []types.TransactWriteItem{}
	if o.OneTimePerUser {
		usage := Usage{
			OfferID:       o.ID,
			CustomerRef:   CustomerRef(c),
			CustomerID:    c.ID,
			CustomerEmail: strings.ToLower(c.Email),
			UsedAt:        s.nowFunc(),
		}
		usageMap, err := attributevalue.MarshalMap(usage)
		if err != nil {
			return nil, fmt.Errorf("marshal usage: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           &s.usageTable,
				Item:                usageMap,
				ConditionExpression: awsString("attribute_not_exists(offer_id)"),
			},
		})
	}
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: o.ID},
			},
			UpdateExpression: awsString("ADD used_count :one SET updated_at = :ua"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one": &types.AttributeValueMemberN{Value: "1"},
				":ua":  &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339)},
			},
		},
	})
	return items, nil
}

// RecordUsage records one redemption on its own, outside an order creation
// transaction. Used for backfills and tests; the checkout path runs the same
// items inside the order transaction instead.
func (s *Store) RecordUsage(ctx context.Context, o *Offer, c Customer) error {
	items, err := s.UsageTransactItems(o, c)
	if err != nil {
		return err
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrAlreadyUsed
		}
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// getItemRetry retries a GetItem once on transient failures. Reads are
// idempotent; writes are never blindly retried.
func (s *Store) getItemRetry(ctx context.Context, in *dyn.GetItemInput) (*dyn.GetItemOutput, error) {
	out, err := s.client.GetItem(ctx, in)
	if err != nil && aws.RetryableRead(err) {
		return s.client.GetItem(ctx, in)
	}
	return out, err
}

func awsString(v string) *string { return &v }
func awsInt32(v int32) *int32    { return &v }
