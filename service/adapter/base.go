package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
)

// Status is the approval marker a business record carries.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

// Entity is the behaviour a business record needs to be routed by Base.
type Entity interface {
	GetID() string
	GetStatus() Status
	SetStatus(status Status)
	Attributes() model.Attributes
	// Validate checks business fields; status is checked by Base.
	Validate() Validation
	Title() string
	Summary() string
}

// ApprovalHook is implemented by records with extra side effects on approval.
type ApprovalHook interface {
	Approved(instance *model.Instance, at time.Time)
}

// Record constrains P to *T implementing Entity.
type Record[T any] interface {
	*T
	Entity
}

// Base implements Adapter for any record type stored in a dao.Service.
type Base[T any, P Record[T]] struct {
	businessType string
	store        dao.Service[string, T]
}

// NewBase creates an adapter for businessType backed by store.
func NewBase[T any, P Record[T]](businessType string, store dao.Service[string, T]) *Base[T, P] {
	return &Base[T, P]{businessType: businessType, store: store}
}

func (b *Base[T, P]) BusinessType() string { return b.businessType }

// Store returns the backing record store.
func (b *Base[T, P]) Store() dao.Service[string, T] { return b.store }

func (b *Base[T, P]) load(ctx context.Context, entityID string) (P, error) {
	record, err := b.store.Load(ctx, entityID)
	if err != nil {
		var none P
		if errors.Is(err, dao.ErrNotFound) {
			return none, model.NewError(model.CodeEntityNotFound, "%s %s not found", b.businessType, entityID)
		}
		return none, fmt.Errorf("failed to load %s %s: %w", b.businessType, entityID, err)
	}
	return P(record), nil
}

func (b *Base[T, P]) GetEntity(ctx context.Context, entityID string) (interface{}, error) {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *Base[T, P]) GetEntityData(ctx context.Context, entityID string) (model.Attributes, error) {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return nil, err
	}
	attrs := record.Attributes()
	if attrs == nil {
		attrs = model.Attributes{}
	}
	attrs["id"] = model.String(record.GetID())
	attrs["status"] = model.String(string(record.GetStatus()))
	return attrs, nil
}

// ValidateSubmit accepts only drafts and rejected records, then applies the record's own rules.
func (b *Base[T, P]) ValidateSubmit(ctx context.Context, entityID string) (Validation, error) {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return Validation{}, err
	}
	switch status := record.GetStatus(); status {
	case StatusDraft, StatusRejected, "":
	default:
		return Invalid("%s %s is %s", b.businessType, entityID, status), nil
	}
	return record.Validate(), nil
}

func (b *Base[T, P]) OnSubmit(ctx context.Context, entityID string, instance *model.Instance) error {
	return b.transition(ctx, entityID, StatusPendingApproval, instance)
}

func (b *Base[T, P]) OnApproved(ctx context.Context, entityID string, instance *model.Instance) error {
	return b.transition(ctx, entityID, StatusApproved, instance)
}

func (b *Base[T, P]) OnRejected(ctx context.Context, entityID string, instance *model.Instance) error {
	return b.transition(ctx, entityID, StatusRejected, instance)
}

func (b *Base[T, P]) OnWithdrawn(ctx context.Context, entityID string, instance *model.Instance) error {
	return b.transition(ctx, entityID, StatusDraft, instance)
}

func (b *Base[T, P]) OnCancelled(ctx context.Context, entityID string, instance *model.Instance) error {
	return b.transition(ctx, entityID, StatusDraft, instance)
}

func (b *Base[T, P]) GetTitle(ctx context.Context, entityID string) (string, error) {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return "", err
	}
	return record.Title(), nil
}

func (b *Base[T, P]) GetSummary(ctx context.Context, entityID string) (string, error) {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return "", err
	}
	return record.Summary(), nil
}

// transition sets status once; repeating the same transition is a no-op.
func (b *Base[T, P]) transition(ctx context.Context, entityID string, status Status, instance *model.Instance) error {
	record, err := b.load(ctx, entityID)
	if err != nil {
		return err
	}
	if record.GetStatus() == status {
		return nil
	}
	record.SetStatus(status)
	if status == StatusApproved {
		if hook, ok := any(record).(ApprovalHook); ok {
			hook.Approved(instance, clock.Now())
		}
	}
	if err = b.store.Save(ctx, (*T)(record)); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", b.businessType, entityID, err)
	}
	return nil
}
