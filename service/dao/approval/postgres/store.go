// Package postgres implements approval.Store on PostgreSQL.
//
// Transact opens a transaction and takes a transaction-scoped advisory lock on
// the key; rows read inside the transaction are locked FOR UPDATE. Partial
// unique indexes enforce a single pending instance per entity and a single
// pending task per instance.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
)

//go:embed schema.sql
var Schema string

const (
	uniqueViolation     = "23505"
	pendingInstanceUniq = "approval_instances_pending_uq"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL approval.Store.
type Store struct {
	pool *pgxpool.Pool
	reader
}

// Init creates tables and indexes when missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create approval schema: %w", err)
	}
	return nil
}

func (s *Store) Transact(ctx context.Context, key string, fn func(ctx context.Context, tx approval.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()
	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key); err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	view := &transaction{reader: reader{q: tx, forUpdate: true}}
	if err = fn(ctx, view); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Tasks(ctx context.Context, filter *approval.TaskFilter) ([]*model.Task, error) {
	var conditions []string
	var args []any
	if filter != nil {
		if filter.AssigneeID != "" {
			args = append(args, filter.AssigneeID)
			conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", len(args)))
		}
		if filter.InstanceID != "" {
			args = append(args, filter.InstanceID)
			conditions = append(conditions, fmt.Sprintf("instance_id = $%d", len(args)))
		}
		if filter.Status != "" {
			args = append(args, string(filter.Status))
			conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
		}
	}
	query := "SELECT " + taskColumns + " FROM approval_tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY node_order, created_at, id"
	return s.queryTasks(ctx, query, args...)
}

func (s *Store) Overdue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	query := "SELECT " + taskColumns + " FROM approval_tasks WHERE status = 'PENDING' AND NOT overdue AND due_at < $1 ORDER BY due_at, id"
	args := []any{now}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryTasks(ctx, query, args...)
}

// New creates a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, reader: reader{q: pool}}
}

type transaction struct {
	reader
}

func (t *transaction) SaveInstance(ctx context.Context, instance *model.Instance) error {
	skipped := make([]int32, len(instance.SkippedNodes))
	for i, order := range instance.SkippedNodes {
		skipped[i] = int32(order)
	}
	_, err := t.q.Exec(ctx, `INSERT INTO approval_instances (`+instanceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    current_node_order = EXCLUDED.current_node_order,
    skipped_nodes = EXCLUDED.skipped_nodes,
    completed_at = EXCLUDED.completed_at,
    updated_at = EXCLUDED.updated_at`,
		instance.ID, instance.FlowCode, instance.FlowVersion, instance.BusinessType, instance.EntityID,
		string(instance.Status), instance.SubmittedBy, instance.SubmittedAt, instance.CurrentNodeOrder,
		instance.Title, instance.Summary, skipped, instance.CompletedAt, instance.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (t *transaction) SaveTask(ctx context.Context, task *model.Task) error {
	_, err := t.q.Exec(ctx, `INSERT INTO approval_tasks (`+taskColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    assignee_id = EXCLUDED.assignee_id,
    status = EXCLUDED.status,
    due_at = EXCLUDED.due_at,
    acted_at = EXCLUDED.acted_at,
    acted_by = EXCLUDED.acted_by,
    action_comment = EXCLUDED.action_comment,
    escalation_level = EXCLUDED.escalation_level,
    overdue = EXCLUDED.overdue,
    updated_at = EXCLUDED.updated_at`,
		task.ID, task.InstanceID, task.NodeOrder, task.NodeName, task.AssigneeID, string(task.Status),
		task.DueAt, task.ActedAt, task.ActedBy, task.ActionComment, task.EscalationLevel, task.Overdue,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == pendingInstanceUniq {
			return model.WrapError(model.CodeDuplicateSubmission, err, "entity already has a pending instance")
		}
		return model.WrapError(model.CodeInvalidState, err, "concurrent modification")
	}
	return err
}
