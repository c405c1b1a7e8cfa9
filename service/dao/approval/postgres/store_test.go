package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao/approval"
)

func newTestStore(t *testing.T) *Store {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("signoff"),
		postgres.WithUsername("signoff"),
		postgres.WithPassword("signoff"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	srv := New(pool)
	require.NoError(t, srv.Init(ctx))
	return srv
}

func TestStore(t *testing.T) {
	srv := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	instance := &model.Instance{
		ID: "i1", FlowCode: "SALES_INVOICE", FlowVersion: 1, BusinessType: "sales_invoice", EntityID: "inv-1",
		Status: model.InstancePending, SubmittedBy: "alice", SubmittedAt: now, CurrentNodeOrder: 2,
		Title: "Invoice", Summary: "total 5000.00", SkippedNodes: []int{1}, UpdatedAt: now,
	}
	task := &model.Task{
		ID: "t1", InstanceID: "i1", NodeOrder: 2, NodeName: "manager", AssigneeID: "bob",
		Status: model.TaskPending, DueAt: &due, CreatedAt: now, UpdatedAt: now,
	}

	t.Run("insert and read back", func(t *testing.T) {
		require.NoError(t, srv.Transact(ctx, model.EntityKey("sales_invoice", "inv-1"), func(ctx context.Context, tx approval.Tx) error {
			if err := tx.SaveInstance(ctx, instance); err != nil {
				return err
			}
			return tx.SaveTask(ctx, task)
		}))

		loaded, err := srv.Instance(ctx, "i1")
		require.NoError(t, err)
		assert.Equal(t, []int{1}, loaded.SkippedNodes)
		assert.True(t, now.Equal(loaded.SubmittedAt))
		assert.Nil(t, loaded.CompletedAt)

		pending, err := srv.PendingTask(ctx, "i1")
		require.NoError(t, err)
		require.NotNil(t, pending)
		assert.Equal(t, "bob", pending.AssigneeID)

		overdue, err := srv.Overdue(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, "t1", overdue[0].ID)
	})

	t.Run("duplicate pending instance", func(t *testing.T) {
		duplicate := *instance
		duplicate.ID = "i2"
		err := srv.Transact(ctx, "other-key", func(ctx context.Context, tx approval.Tx) error {
			return tx.SaveInstance(ctx, &duplicate)
		})
		assert.ErrorIs(t, err, model.ErrDuplicateSubmission)
	})

	t.Run("serialised transitions", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = srv.Transact(ctx, model.InstanceKey("i1"), func(ctx context.Context, tx approval.Tx) error {
					current, err := tx.Task(ctx, "t1")
					if err != nil {
						return err
					}
					if current.Status != model.TaskPending {
						return model.ErrTaskNotPending
					}
					current.Resolve(model.TaskApproved, "bob", "", now)
					return tx.SaveTask(ctx, current)
				})
			}(i)
		}
		wg.Wait()
		failures := 0
		for _, err := range results {
			if err != nil {
				assert.ErrorIs(t, err, model.ErrTaskNotPending)
				failures++
			}
		}
		assert.Equal(t, 1, failures)
	})

	t.Run("filters", func(t *testing.T) {
		tasks, err := srv.Tasks(ctx, &approval.TaskFilter{AssigneeID: "bob", Status: model.TaskApproved})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "bob", tasks[0].ActedBy)

		_, err = srv.Task(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrTaskNotFound)
		_, err = srv.Instance(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrInstanceNotFound)
	})
}
