// Package invalidate defines the port through which the engine tells
// external caches that an entity's approval state has changed.
package invalidate

import (
	"context"
	"errors"

	"github.com/viant/signoff/model"
)

// Change describes an approval state transition affecting cached views of an entity.
type Change struct {
	BusinessType string               `json:"businessType"`
	EntityID     string               `json:"entityId"`
	InstanceID   string               `json:"instanceId"`
	Status       model.InstanceStatus `json:"status"`
	Assignees    []string             `json:"assignees,omitempty"`
}

// ChangeOf builds a Change for instance; assignees lists users whose task lists changed.
func ChangeOf(instance *model.Instance, assignees ...string) Change {
	return Change{
		BusinessType: instance.BusinessType,
		EntityID:     instance.EntityID,
		InstanceID:   instance.ID,
		Status:       instance.Status,
		Assignees:    compact(assignees),
	}
}

func compact(values []string) []string {
	var ret []string
	seen := map[string]bool{}
	for _, value := range values {
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		ret = append(ret, value)
	}
	return ret
}

// Invalidator evicts cached state for a change.
type Invalidator interface {
	Invalidate(ctx context.Context, change Change) error
}

// Func adapts a function to Invalidator.
type Func func(ctx context.Context, change Change) error

func (f Func) Invalidate(ctx context.Context, change Change) error { return f(ctx, change) }

// Nop ignores changes.
var Nop Invalidator = Func(func(context.Context, Change) error { return nil })

// Multi invokes every invalidator, joining errors.
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, change Change) error {
	var errs []error
	for _, invalidator := range m {
		if invalidator == nil {
			continue
		}
		if err := invalidator.Invalidate(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
