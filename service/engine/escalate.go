package engine

import (
	"context"
	"time"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/notify"
	"go.uber.org/zap"
)

// Escalate applies the node's timeout action to an overdue task. Tasks no
// longer pending, not yet due, or already flagged are left untouched.
func (s *Service) Escalate(ctx context.Context, taskID string, now time.Time) (ret *EscalationResult, err error) {
	ctx, end := s.begin(ctx, "escalate", map[string]string{"taskId": taskID})
	defer func() {
		end(err)
		if err != nil {
			s.metrics.Escalation("failed")
			return
		}
		s.metrics.Escalation(string(ret.Outcome))
	}()

	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ret = &EscalationResult{Outcome: OutcomeSkipped}
	var t *transition
	err = s.store.Transact(ctx, model.InstanceKey(task.InstanceID), func(ctx context.Context, tx approval.Tx) error {
		var err error
		if t, err = s.load(ctx, tx, task.InstanceID); err != nil {
			return err
		}
		current, err := tx.Task(ctx, taskID)
		if err != nil {
			return err
		}
		ret.Task, ret.Instance = current, t.instance
		if !current.IsOverdue(now) || current.Overdue || t.instance.Status != model.InstancePending {
			return nil
		}
		node := t.definition.Node(current.NodeOrder)
		if node == nil {
			return model.NewError(model.CodeInvalidState, "flow %s has no node %d", t.definition.Key(), current.NodeOrder)
		}
		switch node.OnTimeout() {
		case model.TimeoutReject:
			current.Resolve(model.TaskTimeout, "", "timeout", t.now)
			t.instance.Complete(model.InstanceRejected, t.now)
			t.effects.notify(notify.ForInstance(notify.InstanceRejected, t.instance, t.instance.SubmittedBy))
			ret.Outcome = OutcomeTimedOut
			return s.commit(ctx, tx, t, current, nil)
		case model.TimeoutApprove:
			attrs, err := entityData(ctx, t.adapter, t.instance.EntityID)
			if err != nil {
				return err
			}
			current.Resolve(model.TaskTimeout, "", "timeout", t.now)
			next, err := s.advance(ctx, t, current.NodeOrder, attrs)
			if err != nil {
				return err
			}
			ret.Outcome = OutcomeTimedOut
			return s.commit(ctx, tx, t, current, next)
		}
		return s.reassign(ctx, tx, t, node, current, ret)
	})
	if err != nil {
		return nil, err
	}
	ret.Task, ret.Instance = ret.Task.Clone(), ret.Instance.Clone()
	s.apply(ctx, t)
	return ret, nil
}

// reassign moves the task to the next escalation target, or flags it overdue when there is none.
func (s *Service) reassign(ctx context.Context, tx approval.Tx, t *transition, node *model.Node, task *model.Task, ret *EscalationResult) error {
	target := s.escalationTarget(ctx, t, node, task)
	task.UpdatedAt = t.now
	if target == "" {
		task.Overdue = true
		ret.Outcome = OutcomeFlagged
		t.effects.notify(notify.ForTask(notify.TaskOverdue, t.instance, task))
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		t.effects.invalidate(t.instance, task.AssigneeID)
		return nil
	}
	ret.PreviousAssignee = task.AssigneeID
	task.AssigneeID = target
	task.EscalationLevel++
	task.DueAt = model.Due(t.now, node.Timeout)
	ret.Outcome = OutcomeEscalated
	t.effects.notify(notify.ForTask(notify.TaskEscalated, t.instance, task))
	if err := tx.SaveTask(ctx, task); err != nil {
		return err
	}
	t.effects.invalidate(t.instance, ret.PreviousAssignee, target)
	return nil
}

// escalationTarget returns the next assignee, or "" when the chain is exhausted,
// resolves to the current assignee, or cannot be resolved.
func (s *Service) escalationTarget(ctx context.Context, t *transition, node *model.Node, task *model.Task) string {
	chain, err := assignee.ParseChain(node.Escalation)
	if err != nil {
		s.logger.Error("invalid escalation rule", zap.String("flow", t.definition.Key()), zap.Int("node", node.Order), zap.Error(err))
		return ""
	}
	rule, ok := chain.At(task.EscalationLevel)
	if !ok {
		return ""
	}
	target, err := s.resolver.Resolve(ctx, rule, assignee.Subject{Initiator: t.instance.SubmittedBy, Assignee: task.AssigneeID})
	if err != nil {
		s.logger.Warn("escalation target unresolved", zap.String("taskId", task.ID), zap.String("rule", rule.String()), zap.Error(err))
		return ""
	}
	if target == task.AssigneeID {
		return ""
	}
	return target
}
