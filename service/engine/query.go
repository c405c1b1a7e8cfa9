package engine

import (
	"context"
	"time"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
)

// GetInstance returns an instance by id.
func (s *Service) GetInstance(ctx context.Context, instanceID string) (*model.Instance, error) {
	return s.store.Instance(ctx, instanceID)
}

// ListTasks returns an assignee's tasks, optionally narrowed to one status.
func (s *Service) ListTasks(ctx context.Context, assigneeID string, status model.TaskStatus) ([]*model.Task, error) {
	if assigneeID == "" {
		return nil, model.NewError(model.CodeValidation, "assignee is required")
	}
	return s.store.Tasks(ctx, &approval.TaskFilter{AssigneeID: assigneeID, Status: status})
}

// InstanceTasks returns an instance's task history ordered by node order.
func (s *Service) InstanceTasks(ctx context.Context, instanceID string) ([]*model.Task, error) {
	if _, err := s.store.Instance(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.store.Tasks(ctx, &approval.TaskFilter{InstanceID: instanceID})
}

// Overdue lists pending tasks due before now that were not flagged yet.
func (s *Service) Overdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	return s.store.Overdue(ctx, now, limit)
}
