package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
)

// Processor consumes profile-upsert messages and denormalizes customer
// profiles into the customers table for reporting. The upsert is keyed by
// customer id; last write wins on the mutable fields.
type Processor struct {
	dynamo         aws.DynamoDBAPI
	customersTable string
	nowFunc        func() time.Time
}

// NewProcessor creates a worker processor with AWS clients injected.
func NewProcessor(dynamo aws.DynamoDBAPI, customersTable string) *Processor {
	return &Processor{
		dynamo:         dynamo,
		customersTable: customersTable,
		nowFunc:        time.Now,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg ProfileMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.CustomerID == "" {
		return fmt.Errorf("message missing customer_id: %s", rec.Body)
	}

	log.Printf("[worker] profile upsert customer=%s order=%s", msg.CustomerID, msg.OrderID)
	return p.upsert(ctx, msg)
}

// upsert writes the profile in one UpdateItem. created_at and total order
// count are maintained atomically; the upsert is idempotent for replays of
// the same message except for the order counter, which is acceptable for a
// reporting-only denormalization.
func (p *Processor) upsert(ctx context.Context, msg ProfileMessage) error {
	now := p.nowFunc()
	_, err := p.dynamo.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &p.customersTable,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: msg.CustomerID},
		},
		UpdateExpression: awsString(
			"SET email = :email, #n = :name, phone = :phone, last_order_id = :oid, last_order_number = :onum, " +
				"created_at = if_not_exists(created_at, :now), updated_at = :now ADD order_count :one"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: msg.CustomerEmail},
			":name":  &types.AttributeValueMemberS{Value: msg.CustomerName},
			":phone": &types.AttributeValueMemberS{Value: msg.CustomerPhone},
			":oid":   &types.AttributeValueMemberS{Value: msg.OrderID},
			":onum":  &types.AttributeValueMemberS{Value: msg.OrderNumber},
			":now":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":one":   &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", msg.CustomerID, err)
	}
	return nil
}

func awsString(s string) *string { return &s }
