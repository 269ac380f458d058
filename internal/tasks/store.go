package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
)

// ErrTaskNotFound indicates no task exists for the (order, type) pair.
var ErrTaskNotFound = errors.New("task not found")

// Store encapsulates operations on the tasks table. The table is keyed by
// (order_id, type), which is what makes task creation idempotent per step.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new tasks Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateIfAbsent writes the task unless one already exists for its
// (order_id, type). Returns false when the step was already created; the
// caller treats that as a successful replay, not an error.
func (s *Store) CreateIfAbsent(ctx context.Context, t Task) (bool, error) {
	now := s.nowFunc()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return false, fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("put task: %w", err)
	}
	return true, nil
}

// Get fetches the task for (orderID, taskType). Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID, taskType string) (*Task, error) {
	in := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       taskKey(orderID, taskType),
	}
	out, err := s.client.GetItem(ctx, in)
	if err != nil && aws.RetryableRead(err) {
		out, err = s.client.GetItem(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var t Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}

// ListByOrder returns every task bound to the order.
func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]Task, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: awsString("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	tasks := make([]Task, 0, len(out.Items))
	for _, item := range out.Items {
		var t Task
		if err := attributevalue.UnmarshalMap(item, &t); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateStatus sets the task status. On a transition into completed,
// completed_at is written through if_not_exists so the first completion
// timestamp survives later edits.
func (s *Store) UpdateStatus(ctx context.Context, orderID, taskType, status string) error {
	now := s.nowFunc()
	expr := "SET #s = :s, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: status},
		":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	if status == StatusCompleted {
		expr += ", completed_at = if_not_exists(completed_at, :ca)"
		values[":ca"] = &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}
	}
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       taskKey(orderID, taskType),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("attribute_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

func taskKey(orderID, taskType string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
		"type":     &types.AttributeValueMemberS{Value: taskType},
	}
}

func awsString(v string) *string { return &v }
