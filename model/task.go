package model

import (
	"strings"
	"time"
)

// TaskStatus is the state of a single approval task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskApproved  TaskStatus = "APPROVED"
	TaskRejected  TaskStatus = "REJECTED"
	TaskTimeout   TaskStatus = "TIMEOUT"
	TaskSkipped   TaskStatus = "SKIPPED"
	TaskWithdrawn TaskStatus = "WITHDRAWN"
)

// Action is a human decision on a task.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

// ParseAction normalises an action name; ok is false for unsupported actions.
func ParseAction(name string) (Action, bool) {
	switch Action(strings.ToUpper(strings.TrimSpace(name))) {
	case ActionApprove:
		return ActionApprove, true
	case ActionReject:
		return ActionReject, true
	}
	return "", false
}

// Task is the unit of human action for one node within one instance.
type Task struct {
	ID         string     `json:"id"`
	InstanceID string     `json:"instanceId"`
	NodeOrder  int        `json:"nodeOrder"`
	NodeName   string     `json:"nodeName"`
	AssigneeID string     `json:"assigneeId"`
	Status     TaskStatus `json:"status"`

	// DueAt is nil when the node has no timeout.
	DueAt *time.Time `json:"dueAt,omitempty"`

	ActedAt       *time.Time `json:"actedAt,omitempty"`
	ActedBy       string     `json:"actedBy,omitempty"`
	ActionComment string     `json:"actionComment,omitempty"`

	// EscalationLevel counts reassignments; 0 means never escalated.
	EscalationLevel int `json:"escalationLevel"`

	// Overdue is set once the escalation rule yields no further target.
	Overdue bool `json:"overdue,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	ret := *t
	if t.DueAt != nil {
		at := *t.DueAt
		ret.DueAt = &at
	}
	if t.ActedAt != nil {
		at := *t.ActedAt
		ret.ActedAt = &at
	}
	return &ret
}

// IsOverdue reports whether a pending task passed its due time.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == TaskPending && t.DueAt != nil && t.DueAt.Before(now)
}

// Resolve records a final decision on the task.
func (t *Task) Resolve(status TaskStatus, actor, comment string, at time.Time) {
	t.Status = status
	t.ActedBy = actor
	t.ActionComment = comment
	t.ActedAt = &at
	t.UpdatedAt = at
}

// Due computes a due time for a node timeout; nil when timeout is zero.
func Due(now time.Time, timeout time.Duration) *time.Time {
	if timeout <= 0 {
		return nil
	}
	due := now.Add(timeout)
	return &due
}
