package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/viant/signoff/model"
)

const (
	instanceColumns = "id, flow_code, flow_version, business_type, entity_id, status, submitted_by, submitted_at, current_node_order, title, summary, skipped_nodes, completed_at, updated_at"
	taskColumns     = "id, instance_id, node_order, node_name, assignee_id, status, due_at, acted_at, acted_by, action_comment, escalation_level, overdue, created_at, updated_at"
)

// reader implements approval.Reader over a querier; forUpdate locks the rows it reads.
type reader struct {
	q         querier
	forUpdate bool
}

func (r *reader) lock() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (r *reader) Instance(ctx context.Context, id string) (*model.Instance, error) {
	row := r.q.QueryRow(ctx, "SELECT "+instanceColumns+" FROM approval_instances WHERE id = $1"+r.lock(), id)
	ret, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewError(model.CodeInstanceNotFound, "instance %s not found", id)
	}
	return ret, err
}

func (r *reader) PendingInstance(ctx context.Context, businessType, entityID string) (*model.Instance, error) {
	row := r.q.QueryRow(ctx, "SELECT "+instanceColumns+" FROM approval_instances WHERE business_type = $1 AND entity_id = $2 AND status = 'PENDING'"+r.lock(), businessType, entityID)
	ret, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ret, err
}

func (r *reader) Task(ctx context.Context, id string) (*model.Task, error) {
	row := r.q.QueryRow(ctx, "SELECT "+taskColumns+" FROM approval_tasks WHERE id = $1"+r.lock(), id)
	ret, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewError(model.CodeTaskNotFound, "task %s not found", id)
	}
	return ret, err
}

func (r *reader) PendingTask(ctx context.Context, instanceID string) (*model.Task, error) {
	row := r.q.QueryRow(ctx, "SELECT "+taskColumns+" FROM approval_tasks WHERE instance_id = $1 AND status = 'PENDING'"+r.lock(), instanceID)
	ret, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ret, err
}

func (r *reader) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()
	var ret []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, task)
	}
	return ret, rows.Err()
}

func scanInstance(row pgx.Row) (*model.Instance, error) {
	ret := &model.Instance{}
	var status string
	var skipped []int32
	err := row.Scan(&ret.ID, &ret.FlowCode, &ret.FlowVersion, &ret.BusinessType, &ret.EntityID, &status,
		&ret.SubmittedBy, &ret.SubmittedAt, &ret.CurrentNodeOrder, &ret.Title, &ret.Summary, &skipped,
		&ret.CompletedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ret.Status = model.InstanceStatus(status)
	for _, order := range skipped {
		ret.SkippedNodes = append(ret.SkippedNodes, int(order))
	}
	return ret, nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	ret := &model.Task{}
	var status string
	err := row.Scan(&ret.ID, &ret.InstanceID, &ret.NodeOrder, &ret.NodeName, &ret.AssigneeID, &status,
		&ret.DueAt, &ret.ActedAt, &ret.ActedBy, &ret.ActionComment, &ret.EscalationLevel, &ret.Overdue,
		&ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ret.Status = model.TaskStatus(status)
	return ret, nil
}
