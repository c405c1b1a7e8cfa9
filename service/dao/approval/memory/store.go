package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
)

// Store is an in-memory approval.Store.
type Store struct {
	mux       sync.RWMutex
	instances map[string]*model.Instance
	tasks     map[string]*model.Task
	keys      *keyedMutex
}

func (s *Store) Instance(_ context.Context, id string) (*model.Instance, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if instance, ok := s.instances[id]; ok {
		return instance.Clone(), nil
	}
	return nil, model.NewError(model.CodeInstanceNotFound, "instance %s not found", id)
}

func (s *Store) PendingInstance(_ context.Context, businessType, entityID string) (*model.Instance, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.pendingInstance(businessType, entityID, "").Clone(), nil
}

func (s *Store) pendingInstance(businessType, entityID, excludeID string) *model.Instance {
	for _, instance := range s.instances {
		if instance.ID != excludeID && instance.Status == model.InstancePending &&
			instance.BusinessType == businessType && instance.EntityID == entityID {
			return instance
		}
	}
	return nil
}

func (s *Store) Task(_ context.Context, id string) (*model.Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if task, ok := s.tasks[id]; ok {
		return task.Clone(), nil
	}
	return nil, model.NewError(model.CodeTaskNotFound, "task %s not found", id)
}

func (s *Store) PendingTask(_ context.Context, instanceID string) (*model.Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.pendingTask(instanceID, "").Clone(), nil
}

func (s *Store) pendingTask(instanceID, excludeID string) *model.Task {
	for _, task := range s.tasks {
		if task.ID != excludeID && task.InstanceID == instanceID && task.Status == model.TaskPending {
			return task
		}
	}
	return nil
}

func (s *Store) Tasks(_ context.Context, filter *approval.TaskFilter) ([]*model.Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var ret []*model.Task
	for _, task := range s.tasks {
		if filter.Match(task) {
			ret = append(ret, task.Clone())
		}
	}
	approval.SortTasks(ret)
	return ret, nil
}

func (s *Store) Overdue(_ context.Context, now time.Time, limit int) ([]*model.Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var ret []*model.Task
	for _, task := range s.tasks {
		if task.IsOverdue(now) && !task.Overdue {
			ret = append(ret, task.Clone())
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].DueAt.Equal(*ret[j].DueAt) {
			return ret[i].DueAt.Before(*ret[j].DueAt)
		}
		return ret[i].ID < ret[j].ID
	})
	if limit > 0 && len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}

// Transact serialises fn per key and applies staged writes atomically.
func (s *Store) Transact(ctx context.Context, key string, fn func(ctx context.Context, tx approval.Tx) error) error {
	unlock := s.keys.Lock(key)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{store: s, instances: map[string]*model.Instance{}, tasks: map[string]*model.Task{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *transaction) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, instance := range tx.instances {
		if instance.Status != model.InstancePending {
			continue
		}
		if other := s.pendingInstance(instance.BusinessType, instance.EntityID, instance.ID); other != nil {
			if staged, ok := tx.instances[other.ID]; !ok || staged.Status == model.InstancePending {
				return model.NewError(model.CodeDuplicateSubmission, "%s %s already has pending instance %s", instance.BusinessType, instance.EntityID, other.ID)
			}
		}
	}
	for _, task := range tx.tasks {
		if task.Status != model.TaskPending {
			continue
		}
		if other := s.pendingTask(task.InstanceID, task.ID); other != nil {
			if staged, ok := tx.tasks[other.ID]; !ok || staged.Status == model.TaskPending {
				return model.NewError(model.CodeInvalidState, "instance %s already has pending task %s", task.InstanceID, other.ID)
			}
		}
		for _, staged := range tx.tasks {
			if staged.ID != task.ID && staged.InstanceID == task.InstanceID && staged.Status == model.TaskPending {
				return model.NewError(model.CodeInvalidState, "instance %s would have two pending tasks", task.InstanceID)
			}
		}
	}
	for id, instance := range tx.instances {
		s.instances[id] = instance
	}
	for id, task := range tx.tasks {
		s.tasks[id] = task
	}
	return nil
}

// New creates an empty store.
func New() *Store {
	return &Store{
		instances: map[string]*model.Instance{},
		tasks:     map[string]*model.Task{},
		keys:      newKeyedMutex(),
	}
}
