package engine

import (
	"context"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/notify"
)

// Act records an approve or reject decision by the task's assignee.
func (s *Service) Act(ctx context.Context, request *ActRequest) (ret *model.Instance, err error) {
	ctx, end := s.begin(ctx, "act", map[string]string{"taskId": request.TaskID, "actor": request.ActorID, "action": string(request.Action)})
	defer func() { end(err) }()

	action, ok := model.ParseAction(string(request.Action))
	if !ok {
		return nil, model.NewError(model.CodeInvalidAction, "unsupported action %q", request.Action)
	}
	task, err := s.store.Task(ctx, request.TaskID)
	if err != nil {
		return nil, err
	}
	var t *transition
	err = s.store.Transact(ctx, model.InstanceKey(task.InstanceID), func(ctx context.Context, tx approval.Tx) error {
		var err error
		if t, err = s.load(ctx, tx, task.InstanceID); err != nil {
			return err
		}
		current, err := tx.Task(ctx, request.TaskID)
		if err != nil {
			return err
		}
		if current.Status != model.TaskPending || t.instance.Status != model.InstancePending {
			return model.NewError(model.CodeTaskNotPending, "task %s is %s", current.ID, current.Status)
		}
		if current.AssigneeID != request.ActorID {
			return model.NewError(model.CodeNotAuthorized, "task %s is assigned to another user", current.ID)
		}
		if action == model.ActionReject {
			current.Resolve(model.TaskRejected, request.ActorID, request.Comment, t.now)
			t.instance.Complete(model.InstanceRejected, t.now)
			t.effects.notify(notify.ForInstance(notify.InstanceRejected, t.instance, t.instance.SubmittedBy))
			return s.commit(ctx, tx, t, current, nil)
		}
		attrs, err := entityData(ctx, t.adapter, t.instance.EntityID)
		if err != nil {
			return err
		}
		current.Resolve(model.TaskApproved, request.ActorID, request.Comment, t.now)
		next, err := s.advance(ctx, t, current.NodeOrder, attrs)
		if err != nil {
			return err
		}
		return s.commit(ctx, tx, t, current, next)
	})
	if err != nil {
		return nil, err
	}
	s.apply(ctx, t)
	return t.instance.Clone(), nil
}

// commit saves a task resolution with its consequences and fires callbacks for terminal instances.
func (s *Service) commit(ctx context.Context, tx approval.Tx, t *transition, resolved, next *model.Task) error {
	if err := save(ctx, tx, resolved, t.instance, next); err != nil {
		return err
	}
	s.completed(t)
	assignees := []string{resolved.AssigneeID}
	if next != nil {
		assignees = append(assignees, next.AssigneeID)
	}
	t.effects.invalidate(t.instance, assignees...)
	return nil
}
