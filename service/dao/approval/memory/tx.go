package memory

import (
	"context"

	"github.com/viant/signoff/model"
)

// transaction stages writes over the committed state.
type transaction struct {
	store     *Store
	instances map[string]*model.Instance
	tasks     map[string]*model.Task
}

func (t *transaction) Instance(ctx context.Context, id string) (*model.Instance, error) {
	if instance, ok := t.instances[id]; ok {
		return instance.Clone(), nil
	}
	return t.store.Instance(ctx, id)
}

func (t *transaction) PendingInstance(ctx context.Context, businessType, entityID string) (*model.Instance, error) {
	for _, instance := range t.instances {
		if instance.BusinessType == businessType && instance.EntityID == entityID && instance.Status == model.InstancePending {
			return instance.Clone(), nil
		}
	}
	committed, err := t.store.PendingInstance(ctx, businessType, entityID)
	if err != nil || committed == nil {
		return nil, err
	}
	if staged, ok := t.instances[committed.ID]; ok && staged.Status != model.InstancePending {
		return nil, nil
	}
	return committed, nil
}

func (t *transaction) Task(ctx context.Context, id string) (*model.Task, error) {
	if task, ok := t.tasks[id]; ok {
		return task.Clone(), nil
	}
	return t.store.Task(ctx, id)
}

func (t *transaction) PendingTask(ctx context.Context, instanceID string) (*model.Task, error) {
	for _, task := range t.tasks {
		if task.InstanceID == instanceID && task.Status == model.TaskPending {
			return task.Clone(), nil
		}
	}
	committed, err := t.store.PendingTask(ctx, instanceID)
	if err != nil || committed == nil {
		return nil, err
	}
	if staged, ok := t.tasks[committed.ID]; ok && staged.Status != model.TaskPending {
		return nil, nil
	}
	return committed, nil
}

func (t *transaction) SaveInstance(_ context.Context, instance *model.Instance) error {
	t.instances[instance.ID] = instance.Clone()
	return nil
}

func (t *transaction) SaveTask(_ context.Context, task *model.Task) error {
	t.tasks[task.ID] = task.Clone()
	return nil
}
