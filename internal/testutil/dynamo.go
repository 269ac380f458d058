package testutil

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FakeDynamo is a small in-memory stand-in for DynamoDB used in unit tests.
// It understands only the expression shapes our stores actually issue:
// attribute_exists/attribute_not_exists conditions, equality conditions on a
// single named attribute, SET with optional if_not_exists, and ADD on
// numeric attributes. It is intentionally not production-grade.
type FakeDynamo struct {
	mu sync.Mutex
	// keyAttrs maps table name -> ordered key attribute names.
	keyAttrs map[string][]string
	tables   map[string]map[string]map[string]types.AttributeValue

	// FailNextGets makes the next N GetItem calls return an error, for
	// exercising read retries.
	FailNextGets int

	PutCalls      int
	GetCalls      int
	UpdateCalls   int
	QueryCalls    int
	ScanCalls     int
	TransactCalls int
}

// NewFakeDynamo builds a fake with the given table key schemas, e.g.
// {"orders": {"id"}, "tasks": {"order_id", "type"}}.
func NewFakeDynamo(keyAttrs map[string][]string) *FakeDynamo {
	tables := map[string]map[string]map[string]types.AttributeValue{}
	for t := range keyAttrs {
		tables[t] = map[string]map[string]types.AttributeValue{}
	}
	return &FakeDynamo{keyAttrs: keyAttrs, tables: tables}
}

// Seed inserts an item directly, bypassing conditions.
func (f *FakeDynamo) Seed(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table][f.keyOf(table, item)] = item
}

// Item returns the raw stored item for assertions, or nil.
func (f *FakeDynamo) Item(table string, keyParts ...string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table][strings.Join(keyParts, "|")]
}

// Len returns how many items a table holds.
func (f *FakeDynamo) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *FakeDynamo) keyOf(table string, item map[string]types.AttributeValue) string {
	parts := make([]string, 0, 2)
	for _, attr := range f.keyAttrs[table] {
		if av, ok := item[attr].(*types.AttributeValueMemberS); ok {
			parts = append(parts, av.Value)
		}
	}
	return strings.Join(parts, "|")
}

func attrName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

// checkCondition evaluates the condition expressions our stores use.
func checkCondition(cond *string, existing map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	for _, clause := range strings.Split(*cond, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			attr := attrName(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
			if existing != nil {
				if _, ok := existing[attr]; ok {
					return false
				}
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			attr := attrName(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
			if existing == nil {
				return false
			}
			if _, ok := existing[attr]; !ok {
				return false
			}
		case strings.Contains(clause, " = "):
			parts := strings.SplitN(clause, " = ", 2)
			lhs := attrName(strings.TrimSpace(parts[0]), names)
			rhs := strings.TrimSpace(parts[1])
			if existing == nil {
				return false
			}
			cur, ok := existing[lhs].(*types.AttributeValueMemberS)
			want, ok2 := values[rhs].(*types.AttributeValueMemberS)
			if !ok || !ok2 || cur.Value != want.Value {
				return false
			}
		default:
			panic("fake dynamo: unsupported condition clause: " + clause)
		}
	}
	return true
}

// applyUpdate applies SET/ADD expressions in place.
func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) {
	setPart, addPart := "", ""
	if i := strings.Index(expr, "SET "); i >= 0 {
		setPart = expr[i+4:]
		if j := strings.Index(setPart, "ADD "); j >= 0 {
			setPart = setPart[:j]
		}
	}
	if i := strings.Index(expr, "ADD "); i >= 0 {
		addPart = expr[i+4:]
		if j := strings.Index(addPart, "SET "); j >= 0 {
			addPart = addPart[:j]
		}
	}
	if setPart != "" {
		for _, assign := range splitTopLevel(setPart) {
			parts := strings.SplitN(assign, "=", 2)
			lhs := attrName(strings.TrimSpace(parts[0]), names)
			rhs := strings.TrimSpace(parts[1])
			if strings.HasPrefix(rhs, "if_not_exists(") {
				if _, exists := item[lhs]; exists {
					continue
				}
				inner := strings.TrimSuffix(strings.TrimPrefix(rhs, "if_not_exists("), ")")
				args := strings.Split(inner, ",")
				rhs = strings.TrimSpace(args[len(args)-1])
			}
			item[lhs] = values[rhs]
		}
	}
	if addPart != "" {
		for _, add := range splitTopLevel(addPart) {
			fields := strings.Fields(add)
			lhs := attrName(fields[0], names)
			inc, _ := strconv.ParseInt(values[fields[1]].(*types.AttributeValueMemberN).Value, 10, 64)
			var cur int64
			if existing, ok := item[lhs].(*types.AttributeValueMemberN); ok {
				cur, _ = strconv.ParseInt(existing.Value, 10, 64)
			}
			item[lhs] = &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+inc, 10)}
		}
	}
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func (f *FakeDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.FailNextGets > 0 {
		f.FailNextGets--
		return nil, errors.New("injected transient fault")
	}
	table := *params.TableName
	item, ok := f.tables[table][f.keyOf(table, params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (f *FakeDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++
	table := *params.TableName
	key := f.keyOf(table, params.Item)
	existing := f.tables[table][key]
	if !checkCondition(params.ConditionExpression, existing, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.tables[table][key] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	table := *params.TableName
	key := f.keyOf(table, params.Key)
	item, ok := f.tables[table][key]
	if !checkCondition(params.ConditionExpression, itemOrNil(item, ok), params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if !ok {
		// DynamoDB upserts on unconditioned updates: start from the key.
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
		f.tables[table][key] = item
	}
	applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (f *FakeDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls++
	table := *params.TableName
	out := &dyn.QueryOutput{}

	if params.IndexName != nil {
		// Only the offers code GSI is modeled: equality on "code".
		want := params.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS).Value
		for _, item := range f.tables[table] {
			if code, ok := item["code"].(*types.AttributeValueMemberS); ok && code.Value == want {
				out.Items = append(out.Items, item)
			}
		}
		return out, nil
	}

	// Partition query: equality on the first key attribute.
	pk := f.keyAttrs[table][0]
	expr := *params.KeyConditionExpression
	placeholder := strings.TrimSpace(strings.SplitN(expr, "=", 2)[1])
	want := params.ExpressionAttributeValues[placeholder].(*types.AttributeValueMemberS).Value
	for _, item := range f.tables[table] {
		if av, ok := item[pk].(*types.AttributeValueMemberS); ok && av.Value == want {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *FakeDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScanCalls++
	out := &dyn.ScanOutput{}
	for _, item := range f.tables[*params.TableName] {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (f *FakeDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransactCalls++

	// Phase 1: evaluate every condition; report positional reasons on failure.
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		code := "None"
		switch {
		case it.Put != nil:
			table := *it.Put.TableName
			existing := f.tables[table][f.keyOf(table, it.Put.Item)]
			if !checkCondition(it.Put.ConditionExpression, existing, it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues) {
				code = "ConditionalCheckFailed"
				failed = true
			}
		case it.Update != nil:
			table := *it.Update.TableName
			key := f.keyOf(table, it.Update.Key)
			existing, ok := f.tables[table][key]
			if !checkCondition(it.Update.ConditionExpression, itemOrNil(existing, ok), it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues) {
				code = "ConditionalCheckFailed"
				failed = true
			}
		}
		reasons[i] = types.CancellationReason{Code: &code}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	// Phase 2: apply.
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			table := *it.Put.TableName
			f.tables[table][f.keyOf(table, it.Put.Item)] = it.Put.Item
		case it.Update != nil:
			table := *it.Update.TableName
			key := f.keyOf(table, it.Update.Key)
			item, ok := f.tables[table][key]
			if !ok {
				item = map[string]types.AttributeValue{}
				for k, v := range it.Update.Key {
					item[k] = v
				}
				f.tables[table][key] = item
			}
			applyUpdate(item, *it.Update.UpdateExpression, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func itemOrNil(item map[string]types.AttributeValue, ok bool) map[string]types.AttributeValue {
	if !ok {
		return nil
	}
	return item
}
