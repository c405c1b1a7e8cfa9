package engine

import "github.com/viant/signoff/model"

// SubmitRequest starts approval of one business entity.
type SubmitRequest struct {
	BusinessType string `json:"businessType"`
	EntityID     string `json:"entityId"`
	InitiatorID  string `json:"initiatorId"`
	// FlowCode selects a flow explicitly; empty uses the business type's default flow.
	FlowCode string `json:"flowCode,omitempty"`
}

// ActRequest records a decision on a task.
type ActRequest struct {
	TaskID  string       `json:"taskId"`
	ActorID string       `json:"actorId"`
	Action  model.Action `json:"action"`
	Comment string       `json:"comment,omitempty"`
}

// Outcome of handling one overdue task.
type Outcome string

const (
	// OutcomeSkipped means the task was no longer pending or not yet due.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeEscalated means the task was reassigned.
	OutcomeEscalated Outcome = "escalated"
	// OutcomeFlagged means no further escalation target exists; the task stays pending and overdue.
	OutcomeFlagged Outcome = "flagged"
	// OutcomeTimedOut means the node's timeout action resolved the task.
	OutcomeTimedOut Outcome = "timed_out"
)

// EscalationResult describes what Escalate did.
type EscalationResult struct {
	Outcome          Outcome
	Task             *model.Task
	Instance         *model.Instance
	PreviousAssignee string
}
