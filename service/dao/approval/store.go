// Package approval defines persistence for approval instances and tasks.
//
// Every state transition runs inside Store.Transact, which serialises work per
// key and makes the transition atomic. Implementations enforce at commit time
// that an entity has at most one pending instance and an instance at most one
// pending task.
package approval

import (
	"context"
	"sort"
	"time"

	"github.com/viant/signoff/model"
)

// Reader loads instances and tasks. Returned values are copies owned by the caller.
type Reader interface {
	// Instance returns an error matching model.ErrInstanceNotFound when missing.
	Instance(ctx context.Context, id string) (*model.Instance, error)

	// PendingInstance returns the pending instance for an entity, or nil.
	PendingInstance(ctx context.Context, businessType, entityID string) (*model.Instance, error)

	// Task returns an error matching model.ErrTaskNotFound when missing.
	Task(ctx context.Context, id string) (*model.Task, error)

	// PendingTask returns the pending task of an instance, or nil.
	PendingTask(ctx context.Context, instanceID string) (*model.Task, error)
}

// Tx is the transactional view passed to Transact callbacks.
type Tx interface {
	Reader

	// SaveInstance inserts or updates an instance.
	SaveInstance(ctx context.Context, instance *model.Instance) error

	// SaveTask inserts or updates a task. A task leaving PENDING must be saved before its successor.
	SaveTask(ctx context.Context, task *model.Task) error
}

// TaskFilter narrows task listings; empty fields match everything.
type TaskFilter struct {
	AssigneeID string
	InstanceID string
	Status     model.TaskStatus
}

// Match reports whether task satisfies the filter.
func (f *TaskFilter) Match(task *model.Task) bool {
	if f == nil {
		return true
	}
	if f.AssigneeID != "" && task.AssigneeID != f.AssigneeID {
		return false
	}
	if f.InstanceID != "" && task.InstanceID != f.InstanceID {
		return false
	}
	if f.Status != "" && task.Status != f.Status {
		return false
	}
	return true
}

// Store persists approval state.
type Store interface {
	Reader

	// Transact runs fn with exclusive access for key. Writes become visible only when fn returns nil.
	Transact(ctx context.Context, key string, fn func(ctx context.Context, tx Tx) error) error

	// Tasks lists tasks ordered by node order, then creation time.
	Tasks(ctx context.Context, filter *TaskFilter) ([]*model.Task, error)

	// Overdue lists pending, not yet flagged tasks due before now, earliest first.
	Overdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error)
}

// SortTasks orders tasks by node order, then creation time, then id.
func SortTasks(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		left, right := tasks[i], tasks[j]
		if left.NodeOrder != right.NodeOrder {
			return left.NodeOrder < right.NodeOrder
		}
		if !left.CreatedAt.Equal(right.CreatedAt) {
			return left.CreatedAt.Before(right.CreatedAt)
		}
		return left.ID < right.ID
	})
}
