// Package adapter defines the contract between the approval engine and the
// business modules whose records it routes through approval flows.
//
// An Adapter translates one business type's records into the engine's generic
// view (attributes, title, summary) and receives lifecycle callbacks when an
// approval instance changes state. Adapters are registered once at start-up in
// a Registry, which is frozen before the engine begins serving requests.
package adapter

import (
	"context"
	"fmt"

	"github.com/viant/signoff/model"
)

// Validation is the outcome of a submit pre-check.
type Validation struct {
	OK     bool
	Reason string
}

// Valid returns a passing validation.
func Valid() Validation { return Validation{OK: true} }

// Invalid returns a failing validation with a formatted reason.
func Invalid(format string, args ...interface{}) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}

// Adapter exposes one business type to the engine.
//
// GetEntity and friends return an error matching model.ErrEntityNotFound when the record does not exist.
// Callbacks must be idempotent: repeating a callback for a state already applied is a no-op.
type Adapter interface {
	BusinessType() string

	GetEntity(ctx context.Context, entityID string) (interface{}, error)

	GetEntityData(ctx context.Context, entityID string) (model.Attributes, error)

	// ValidateSubmit returns a failing Validation for business rule violations; err is reserved for infrastructure failures.
	ValidateSubmit(ctx context.Context, entityID string) (Validation, error)

	OnSubmit(ctx context.Context, entityID string, instance *model.Instance) error

	OnApproved(ctx context.Context, entityID string, instance *model.Instance) error

	OnRejected(ctx context.Context, entityID string, instance *model.Instance) error

	OnWithdrawn(ctx context.Context, entityID string, instance *model.Instance) error

	GetTitle(ctx context.Context, entityID string) (string, error)

	GetSummary(ctx context.Context, entityID string) (string, error)
}

// Canceller is implemented by adapters that react to administrative cancellation.
type Canceller interface {
	OnCancelled(ctx context.Context, entityID string, instance *model.Instance) error
}
