// Package notify delivers workflow events to recipients. Delivery is best
// effort: failures are retried and reported but never affect the workflow.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/model"
)

// Kind identifies an event.
type Kind string

const (
	TaskAssigned      Kind = "task.assigned"
	TaskEscalated     Kind = "task.escalated"
	TaskOverdue       Kind = "task.overdue"
	InstanceApproved  Kind = "instance.approved"
	InstanceRejected  Kind = "instance.rejected"
	InstanceWithdrawn Kind = "instance.withdrawn"
	InstanceCancelled Kind = "instance.cancelled"
)

// Event describes something a recipient should hear about.
type Event struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	At           time.Time `json:"at"`
	Recipient    string    `json:"recipient"`
	InstanceID   string    `json:"instanceId"`
	FlowCode     string    `json:"flowCode"`
	BusinessType string    `json:"businessType"`
	EntityID     string    `json:"entityId"`
	Title        string    `json:"title,omitempty"`
	TaskID       string    `json:"taskId,omitempty"`
	NodeOrder    int       `json:"nodeOrder,omitempty"`
	NodeName     string    `json:"nodeName,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

// ForTask builds a task event addressed to the task assignee.
func ForTask(kind Kind, instance *model.Instance, task *model.Task) *Event {
	ret := ForInstance(kind, instance, task.AssigneeID)
	ret.TaskID = task.ID
	ret.NodeOrder = task.NodeOrder
	ret.NodeName = task.NodeName
	return ret
}

// ForInstance builds an instance event addressed to recipient.
func ForInstance(kind Kind, instance *model.Instance, recipient string) *Event {
	return &Event{
		ID:           idgen.New(),
		Kind:         kind,
		At:           clock.Now(),
		Recipient:    recipient,
		InstanceID:   instance.ID,
		FlowCode:     instance.FlowCode,
		BusinessType: instance.BusinessType,
		EntityID:     instance.EntityID,
		Title:        instance.Title,
	}
}

// Sink receives events.
type Sink interface {
	Notify(ctx context.Context, event *Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event *Event) error

func (f SinkFunc) Notify(ctx context.Context, event *Event) error { return f(ctx, event) }

// Sinks fans an event out to every sink; all sinks are attempted.
type Sinks []Sink

func (s Sinks) Notify(ctx context.Context, event *Event) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
var Nop Sink = SinkFunc(func(context.Context, *Event) error { return nil })

// Field exposes filterable fields for audit queries.
func (e *Event) Field(name string) (string, bool) {
	switch name {
	case "kind":
		return string(e.Kind), true
	case "recipient":
		return e.Recipient, true
	case "instanceid", "instance_id":
		return e.InstanceID, true
	case "entityid", "entity_id":
		return e.EntityID, true
	case "businesstype", "business_type":
		return e.BusinessType, true
	}
	return "", false
}
