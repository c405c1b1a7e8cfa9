package engine

import (
	"context"
	"fmt"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/notify"
)

// Withdraw lets the submitter retract a pending instance.
func (s *Service) Withdraw(ctx context.Context, instanceID, actorID string) (ret *model.Instance, err error) {
	ctx, end := s.begin(ctx, "withdraw", map[string]string{"instanceId": instanceID, "actor": actorID})
	defer func() { end(err) }()
	return s.close(ctx, instanceID, func(instance *model.Instance) error {
		if instance.SubmittedBy != actorID {
			return model.NewError(model.CodeNotAuthorized, "only the submitter can withdraw instance %s", instance.ID)
		}
		return nil
	}, model.InstanceWithdrawn, actorID, "", notify.InstanceWithdrawn)
}

// Cancel administratively ends a pending instance without an authorization check, e.g. when its entity was deleted.
func (s *Service) Cancel(ctx context.Context, instanceID, reason string) (ret *model.Instance, err error) {
	ctx, end := s.begin(ctx, "cancel", map[string]string{"instanceId": instanceID})
	defer func() { end(err) }()
	return s.close(ctx, instanceID, nil, model.InstanceCancelled, "", reason, notify.InstanceCancelled)
}

// CancelAs cancels a pending instance on behalf of actorID, who must hold the administrator role.
func (s *Service) CancelAs(ctx context.Context, instanceID, actorID, reason string) (ret *model.Instance, err error) {
	ctx, end := s.begin(ctx, "cancel", map[string]string{"instanceId": instanceID, "actor": actorID})
	defer func() { end(err) }()
	if err = s.authorizeAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "cancelled by " + actorID
	}
	return s.close(ctx, instanceID, nil, model.InstanceCancelled, actorID, reason, notify.InstanceCancelled)
}

func (s *Service) authorizeAdmin(ctx context.Context, actorID string) error {
	if s.adminRole == "" || actorID == "" {
		return model.NewError(model.CodeNotAuthorized, "cancellation requires an administrator")
	}
	ok, err := s.resolver.HasRole(ctx, actorID, s.adminRole)
	if err != nil {
		return fmt.Errorf("failed to check role %s of %s: %w", s.adminRole, actorID, err)
	}
	if !ok {
		return model.NewError(model.CodeNotAuthorized, "%s is not in role %s", actorID, s.adminRole)
	}
	return nil
}

// close withdraws the pending task and moves the instance to status.
func (s *Service) close(ctx context.Context, instanceID string, authorize func(instance *model.Instance) error, status model.InstanceStatus, actor, comment string, kind notify.Kind) (*model.Instance, error) {
	var t *transition
	err := s.store.Transact(ctx, model.InstanceKey(instanceID), func(ctx context.Context, tx approval.Tx) error {
		var err error
		if t, err = s.load(ctx, tx, instanceID); err != nil {
			return err
		}
		instance := t.instance
		if instance.Status.IsTerminal() {
			return model.NewError(model.CodeInvalidState, "instance %s is %s", instance.ID, instance.Status)
		}
		if authorize != nil {
			if err = authorize(instance); err != nil {
				return err
			}
		}
		task, err := tx.PendingTask(ctx, instance.ID)
		if err != nil {
			return err
		}
		assignees := []string{instance.SubmittedBy}
		if task != nil {
			task.Resolve(model.TaskWithdrawn, actor, comment, t.now)
			if err = tx.SaveTask(ctx, task); err != nil {
				return err
			}
			assignees = append(assignees, task.AssigneeID)
			t.effects.notify(notify.ForTask(kind, instance, task))
		}
		instance.Complete(status, t.now)
		if err = tx.SaveInstance(ctx, instance); err != nil {
			return err
		}
		if actor != instance.SubmittedBy {
			t.effects.notify(notify.ForInstance(kind, instance, instance.SubmittedBy))
		}
		s.completed(t)
		t.effects.invalidate(instance, assignees...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.apply(ctx, t)
	return t.instance.Clone(), nil
}
