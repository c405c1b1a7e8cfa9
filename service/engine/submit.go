package engine

import (
	"context"
	"fmt"

	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
)

// Submit starts an approval instance for an entity. When no node applies the
// instance is approved immediately without tasks.
func (s *Service) Submit(ctx context.Context, request *SubmitRequest) (ret *model.Instance, err error) {
	ctx, end := s.begin(ctx, "submit", map[string]string{"businessType": request.BusinessType, "entityId": request.EntityID})
	defer func() { end(err) }()

	switch {
	case request.BusinessType == "":
		return nil, model.NewError(model.CodeValidation, "business type is required")
	case request.EntityID == "":
		return nil, model.NewError(model.CodeValidation, "entity id is required")
	case request.InitiatorID == "":
		return nil, model.NewError(model.CodeValidation, "initiator is required")
	}
	a, err := s.registry.Resolve(request.BusinessType)
	if err != nil {
		return nil, err
	}
	if _, err = a.GetEntity(ctx, request.EntityID); err != nil {
		return nil, err
	}
	if err = s.ensureNotPending(ctx, s.store, request.BusinessType, request.EntityID); err != nil {
		return nil, err
	}
	validation, err := a.ValidateSubmit(ctx, request.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s %s: %w", request.BusinessType, request.EntityID, err)
	}
	if !validation.OK {
		return nil, model.NewError(model.CodeValidation, "%s", validation.Reason)
	}
	def, err := s.definitions.Select(request.BusinessType, request.FlowCode)
	if err != nil {
		return nil, err
	}
	attrs, err := entityData(ctx, a, request.EntityID)
	if err != nil {
		return nil, err
	}
	title, err := a.GetTitle(ctx, request.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read title: %w", err)
	}
	summary, err := a.GetSummary(ctx, request.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	now := clock.Now()
	t := &transition{definition: def, adapter: a, now: now}
	t.instance = &model.Instance{
		ID:           idgen.New(),
		FlowCode:     def.FlowCode,
		FlowVersion:  def.Version,
		BusinessType: request.BusinessType,
		EntityID:     request.EntityID,
		Status:       model.InstancePending,
		SubmittedBy:  request.InitiatorID,
		SubmittedAt:  now,
		Title:        title,
		Summary:      summary,
		UpdatedAt:    now,
	}
	err = s.store.Transact(ctx, model.EntityKey(request.BusinessType, request.EntityID), func(ctx context.Context, tx approval.Tx) error {
		if err := s.ensureNotPending(ctx, tx, request.BusinessType, request.EntityID); err != nil {
			return err
		}
		task, err := s.advance(ctx, t, 0, attrs)
		if err != nil {
			return err
		}
		if err = save(ctx, tx, nil, t.instance, task); err != nil {
			return err
		}
		t.effects.callback("on_submit", a.OnSubmit)
		t.effects.record(model.InstancePending)
		s.completed(t)
		if task != nil {
			t.effects.invalidate(t.instance, task.AssigneeID)
		} else {
			t.effects.invalidate(t.instance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.apply(ctx, t)
	return t.instance.Clone(), nil
}

// ensureNotPending reports a duplicate submission when the entity already has a pending instance.
func (s *Service) ensureNotPending(ctx context.Context, reader approval.Reader, businessType, entityID string) error {
	pending, err := reader.PendingInstance(ctx, businessType, entityID)
	if err != nil {
		return err
	}
	if pending != nil {
		return model.NewError(model.CodeDuplicateSubmission, "%s %s already has pending instance %s", businessType, entityID, pending.ID)
	}
	return nil
}
