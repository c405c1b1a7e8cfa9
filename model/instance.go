package model

import "time"

// InstanceStatus is the lifecycle state of an approval instance.
type InstanceStatus string

const (
	InstancePending   InstanceStatus = "PENDING"
	InstanceApproved  InstanceStatus = "APPROVED"
	InstanceRejected  InstanceStatus = "REJECTED"
	InstanceWithdrawn InstanceStatus = "WITHDRAWN"
	InstanceCancelled InstanceStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s InstanceStatus) IsTerminal() bool {
	return s != InstancePending
}

// Instance is one flow execution bound to exactly one business entity.
type Instance struct {
	ID           string         `json:"id"`
	FlowCode     string         `json:"flowCode"`
	FlowVersion  int            `json:"flowVersion"`
	BusinessType string         `json:"businessType"`
	EntityID     string         `json:"entityId"`
	Status       InstanceStatus `json:"status"`
	SubmittedBy  string         `json:"submittedBy"`
	SubmittedAt  time.Time      `json:"submittedAt"`

	// CurrentNodeOrder is the order of the node holding the pending task; 0 once terminal with no task.
	CurrentNodeOrder int `json:"currentNodeOrder"`

	// Title and Summary are frozen at submit time.
	Title   string `json:"title"`
	Summary string `json:"summary"`

	// SkippedNodes lists node orders whose condition was false; no task is created for them.
	SkippedNodes []int `json:"skippedNodes,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	ret := *i
	if i.SkippedNodes != nil {
		ret.SkippedNodes = append([]int(nil), i.SkippedNodes...)
	}
	if i.CompletedAt != nil {
		at := *i.CompletedAt
		ret.CompletedAt = &at
	}
	return &ret
}

// Complete moves the instance to a terminal status.
func (i *Instance) Complete(status InstanceStatus, at time.Time) {
	i.Status = status
	i.CompletedAt = &at
	i.UpdatedAt = at
}

// EntityKey returns the lock/uniqueness key of the bound entity.
func EntityKey(businessType, entityID string) string {
	return "entity:" + businessType + ":" + entityID
}

// InstanceKey returns the lock key of an instance.
func InstanceKey(instanceID string) string {
	return "instance:" + instanceID
}
