package tasks

import (
	"math"
	"time"
)

// Task types, the fixed 3-step fulfillment workflow.
const (
	TypePacking      = "packing"
	TypeQualityCheck = "quality_check"
	TypeShippingPrep = "shipping_prep"
)

// Task statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task represents one fulfillment step bound to exactly one order. A given
// type occurs at most once per order; a failed step is reopened by resetting
// status, not by creating a duplicate.
type Task struct {
	OrderID    string `dynamodbav:"order_id" json:"order_id"` // PK
	Type       string `dynamodbav:"type" json:"type"`         // SK
	ID         string `dynamodbav:"id" json:"id"`
	Status     string `dynamodbav:"status" json:"status"`
	AssignedTo string `dynamodbav:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	Priority   string `dynamodbav:"priority" json:"priority"`
	// CompletedAt is set exactly once, the first time the task completes,
	// and never cleared by later edits.
	CompletedAt *time.Time `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// Step is one position in the fixed workflow.
type Step struct {
	Type  string `json:"type"`
	Order int    `json:"order"`
}

// Steps is the canonical workflow: packing(1) -> quality_check(2) -> shipping_prep(3).
var Steps = []Step{
	{Type: TypePacking, Order: 1},
	{Type: TypeQualityCheck, Order: 2},
	{Type: TypeShippingPrep, Order: 3},
}

// StepFor returns the workflow step for a task type, or nil for unknown types.
func StepFor(taskType string) *Step {
	for i := range Steps {
		if Steps[i].Type == taskType {
			return &Steps[i]
		}
	}
	return nil
}

// ValidType reports whether t is a workflow task type.
func ValidType(t string) bool { return StepFor(t) != nil }

// ValidStatus reports whether s is a task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NextStep returns the first step when current is empty, the step after
// current otherwise, or nil when current is the last step.
func NextStep(current string) *Step {
	if current == "" {
		return &Steps[0]
	}
	cur := StepFor(current)
	if cur == nil {
		return nil
	}
	for i := range Steps {
		if Steps[i].Order == cur.Order+1 {
			return &Steps[i]
		}
	}
	return nil
}

// IsStepCompleted reports whether a task of the given type exists with
// status completed.
func IsStepCompleted(taskType string, tasks []Task) bool {
	for i := range tasks {
		if tasks[i].Type == taskType && tasks[i].Status == StatusCompleted {
			return true
		}
	}
	return false
}

// ProgressPercent returns round(100 * completed steps / total steps):
// 0 with no tasks, 100 only when all three step types show completed.
func ProgressPercent(tasks []Task) int {
	completed := 0
	for i := range Steps {
		if IsStepCompleted(Steps[i].Type, tasks) {
			completed++
		}
	}
	return int(math.Floor(float64(completed)*100/float64(len(Steps)) + 0.5))
}

// CurrentStep returns the first step (in order) not yet completed, or nil
// once every step is completed. This is the step a worker should act on next.
func CurrentStep(tasks []Task) *Step {
	for i := range Steps {
		if !IsStepCompleted(Steps[i].Type, tasks) {
			return &Steps[i]
		}
	}
	return nil
}
