package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/adapter/entity"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/dao/definition"
	"github.com/viant/signoff/service/invalidate"
	"github.com/viant/signoff/service/metrics"
	"github.com/viant/signoff/service/notify"
)

// recording wraps an adapter, counting callbacks and optionally failing them.
type recording struct {
	adapter.Adapter
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (r *recording) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
	if r.fail[name] {
		if name == "on_submit" {
			panic("callback panic")
		}
		return errors.New("downstream unavailable")
	}
	return nil
}

func (r *recording) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *recording) OnSubmit(ctx context.Context, id string, instance *model.Instance) error {
	if err := r.record("on_submit"); err != nil {
		return err
	}
	return r.Adapter.OnSubmit(ctx, id, instance)
}

func (r *recording) OnApproved(ctx context.Context, id string, instance *model.Instance) error {
	if err := r.record("on_approved"); err != nil {
		return err
	}
	return r.Adapter.OnApproved(ctx, id, instance)
}

func (r *recording) OnRejected(ctx context.Context, id string, instance *model.Instance) error {
	if err := r.record("on_rejected"); err != nil {
		return err
	}
	return r.Adapter.OnRejected(ctx, id, instance)
}

func (r *recording) OnWithdrawn(ctx context.Context, id string, instance *model.Instance) error {
	if err := r.record("on_withdrawn"); err != nil {
		return err
	}
	return r.Adapter.OnWithdrawn(ctx, id, instance)
}

func (r *recording) OnCancelled(ctx context.Context, id string, instance *model.Instance) error {
	if err := r.record("on_cancelled"); err != nil {
		return err
	}
	return r.Adapter.(adapter.Canceller).OnCancelled(ctx, id, instance)
}

type fixture struct {
	engine   *Service
	stores   *entity.Stores
	invoices *recording
	metrics  *metrics.Metrics
	mu       sync.Mutex
	events   []*notify.Event
	changes  []invalidate.Change
}

func (f *fixture) kinds(recipient string) []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ret []notify.Kind
	for _, event := range f.events {
		if event.Recipient == recipient {
			ret = append(ret, event.Kind)
		}
	}
	return ret
}

func (f *fixture) invoice(t *testing.T, id, total string) {
	amount := decimal.RequireFromString(total)
	require.NoError(t, f.stores.SalesInvoices.Save(context.Background(), &entity.SalesInvoice{
		Header:       entity.Header{ID: id},
		Number:       "INV-" + id,
		CustomerName: "Acme",
		InvoiceType:  "standard",
		TotalAmount:  amount,
		TaxAmount:    amount.Div(decimal.NewFromInt(10)),
	}))
}

func (f *fixture) invoiceStatus(t *testing.T, id string) adapter.Status {
	record, err := f.stores.SalesInvoices.Load(context.Background(), id)
	require.NoError(t, err)
	return record.GetStatus()
}

func (f *fixture) submit(t *testing.T, id string) *model.Instance {
	instance, err := f.engine.Submit(context.Background(), &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: id, InitiatorID: "alice"})
	require.NoError(t, err)
	return instance
}

func (f *fixture) pending(t *testing.T, instanceID string) *model.Task {
	task, err := f.engine.Store().PendingTask(context.Background(), instanceID)
	require.NoError(t, err)
	require.NotNil(t, task)
	return task
}

func invoiceFlow() *model.Definition {
	ret := model.NewDefinition("SALES_INVOICE", entity.TypeSalesInvoice)
	ret.AddNode(1, "Finance clerk", "role:finance_clerk").
		WithTimeout(time.Hour).
		WithEscalation("assignee_manager > role:cfo")
	ret.AddNode(2, "Finance manager", "role:finance_manager").WithCondition("entity.total_amount > 10000")
	return ret
}

func directory() *assignee.Memory {
	return assignee.NewMemory().
		AddRole("finance_clerk", "carol").
		AddRole("finance_manager", "mike").
		AddRole("cfo", "frank").
		SetManager("carol", "mike").
		SetManager("alice", "bob")
}

func newFixture(t *testing.T, flows ...*model.Definition) *fixture {
	if len(flows) == 0 {
		flows = []*model.Definition{invoiceFlow()}
	}
	ret := &fixture{stores: entity.NewMemoryStores(), metrics: metrics.New()}
	ret.invoices = &recording{Adapter: entity.NewSalesInvoiceAdapter(ret.stores.SalesInvoices), calls: map[string]int{}, fail: map[string]bool{}}
	registry, err := adapter.NewRegistry(ret.invoices, entity.NewQuoteAdapter(ret.stores.Quotes))
	require.NoError(t, err)
	definitions := definition.New()
	for _, flow := range flows {
		require.NoError(t, definitions.Publish(flow))
	}
	ret.engine, err = New(
		WithRegistry(registry),
		WithDefinitions(definitions),
		WithDirectory(directory()),
		WithMetrics(ret.metrics),
		WithNotifier(notify.SinkFunc(func(_ context.Context, event *notify.Event) error {
			ret.mu.Lock()
			defer ret.mu.Unlock()
			ret.events = append(ret.events, event)
			return nil
		})),
		WithInvalidator(invalidate.Func(func(_ context.Context, change invalidate.Change) error {
			ret.mu.Lock()
			defer ret.mu.Unlock()
			ret.changes = append(ret.changes, change)
			return nil
		})),
	)
	require.NoError(t, err)
	return ret
}

func TestService_SalesInvoiceScenario(t *testing.T) {
	testCases := []struct {
		description  string
		total        string
		expectStatus model.InstanceStatus
		expectNext   string
		expectSkip   []int
	}{
		{description: "small invoice skips manager", total: "5000", expectStatus: model.InstanceApproved, expectSkip: []int{2}},
		{description: "large invoice reaches manager", total: "50000", expectStatus: model.InstancePending, expectNext: "mike"},
		{description: "threshold is exclusive", total: "10000.00", expectStatus: model.InstanceApproved, expectSkip: []int{2}},
	}
	for _, testCase := range testCases {
		f := newFixture(t)
		f.invoice(t, "inv-1", testCase.total)
		instance := f.submit(t, "inv-1")
		assert.Equal(t, model.InstancePending, instance.Status, testCase.description)
		assert.Equal(t, 1, instance.CurrentNodeOrder, testCase.description)
		assert.Equal(t, "Sales invoice INV-inv-1 to Acme", instance.Title, testCase.description)
		assert.Equal(t, adapter.StatusPendingApproval, f.invoiceStatus(t, "inv-1"), testCase.description)

		first := f.pending(t, instance.ID)
		assert.Equal(t, "carol", first.AssigneeID, testCase.description)
		require.NotNil(t, first.DueAt, testCase.description)

		updated, err := f.engine.Act(context.Background(), &ActRequest{TaskID: first.ID, ActorID: "carol", Action: "approve", Comment: "ok"})
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectStatus, updated.Status, testCase.description)
		assert.Equal(t, testCase.expectSkip, updated.SkippedNodes, testCase.description)

		tasks, err := f.engine.InstanceTasks(context.Background(), instance.ID)
		require.NoError(t, err)
		if testCase.expectNext == "" {
			assert.Len(t, tasks, 1, testCase.description)
			assert.Equal(t, 1, f.invoices.count("on_approved"), testCase.description)
			assert.Equal(t, adapter.StatusApproved, f.invoiceStatus(t, "inv-1"), testCase.description)
			assert.NotNil(t, updated.CompletedAt, testCase.description)
			assert.Contains(t, f.kinds("alice"), notify.InstanceApproved, testCase.description)
			continue
		}
		require.Len(t, tasks, 2, testCase.description)
		assert.Equal(t, model.TaskApproved, tasks[0].Status)
		assert.Equal(t, "carol", tasks[0].ActedBy)
		assert.Equal(t, testCase.expectNext, tasks[1].AssigneeID)
		assert.Equal(t, 2, updated.CurrentNodeOrder)
		assert.Nil(t, tasks[1].DueAt)
		assert.Equal(t, 0, f.invoices.count("on_approved"))
		assert.Equal(t, []notify.Kind{notify.TaskAssigned}, f.kinds(testCase.expectNext))

		final, err := f.engine.Act(context.Background(), &ActRequest{TaskID: tasks[1].ID, ActorID: "mike", Action: model.ActionApprove})
		require.NoError(t, err)
		assert.Equal(t, model.InstanceApproved, final.Status)
		assert.Equal(t, 1, f.invoices.count("on_approved"))
	}
}

func TestService_TitleIsFrozen(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "500")
	instance := f.submit(t, "inv-1")

	record, err := f.stores.SalesInvoices.Load(context.Background(), "inv-1")
	require.NoError(t, err)
	record.CustomerName = "Renamed"
	require.NoError(t, f.stores.SalesInvoices.Save(context.Background(), record))

	loaded, err := f.engine.GetInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sales invoice INV-inv-1 to Acme", loaded.Title)
}

func TestService_SubmitErrors(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	f.invoice(t, "inv-zero", "0")
	f.invoice(t, "inv-2", "100")
	require.NoError(t, f.stores.Quotes.Save(context.Background(), &entity.Quote{Header: entity.Header{ID: "q1"}, CustomerName: "Acme", TotalAmount: decimal.NewFromInt(10)}))
	f.submit(t, "inv-1")
	require.Equal(t, adapter.StatusPendingApproval, f.invoiceStatus(t, "inv-1"))

	testCases := []struct {
		description string
		request     *SubmitRequest
		expect      error
	}{
		{description: "unknown type", request: &SubmitRequest{BusinessType: "payroll", EntityID: "1", InitiatorID: "alice"}, expect: model.ErrUnknownEntityType},
		{description: "missing entity", request: &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "nope", InitiatorID: "alice"}, expect: model.ErrEntityNotFound},
		{description: "adapter validation", request: &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-zero", InitiatorID: "alice"}, expect: model.ErrValidation},
		{description: "no workflow", request: &SubmitRequest{BusinessType: entity.TypeQuote, EntityID: "q1", InitiatorID: "alice"}, expect: model.ErrNoWorkflowDefined},
		{description: "wrong flow", request: &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-2", InitiatorID: "alice", FlowCode: "OTHER"}, expect: model.ErrNoWorkflowDefined},
		{description: "duplicate", request: &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-1", InitiatorID: "alice"}, expect: model.ErrDuplicateSubmission},
		{description: "missing initiator", request: &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-1"}, expect: model.ErrValidation},
	}
	for _, testCase := range testCases {
		_, err := f.engine.Submit(context.Background(), testCase.request)
		assert.ErrorIs(t, err, testCase.expect, testCase.description)
	}
	errorsCount, err := testutil.GatherAndCount(f.metrics.Registry(), "signoff_operations_total")
	require.NoError(t, err)
	assert.Greater(t, errorsCount, 1)
}

func TestService_EmptyChain(t *testing.T) {
	flow := model.NewDefinition("SI_BIG_ONLY", entity.TypeSalesInvoice)
	flow.AddNode(1, "Director", "user:dana").WithCondition("entity.total_amount > 1000000")
	flow.AddNode(2, "Board", "user:board").WithCondition("entity.invoice_type == 'special'")
	f := newFixture(t, flow)
	f.invoice(t, "inv-1", "100")

	instance := f.submit(t, "inv-1")
	assert.Equal(t, model.InstanceApproved, instance.Status)
	assert.Equal(t, []int{1, 2}, instance.SkippedNodes)
	assert.Equal(t, 0, instance.CurrentNodeOrder)
	tasks, err := f.engine.InstanceTasks(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, 1, f.invoices.count("on_submit"))
	assert.Equal(t, 1, f.invoices.count("on_approved"))
	assert.Equal(t, adapter.StatusApproved, f.invoiceStatus(t, "inv-1"))

	pending, err := f.engine.Store().PendingInstance(context.Background(), entity.TypeSalesInvoice, "inv-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestService_Reject(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "50000")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)

	rejected, err := f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionReject, Comment: "wrong customer"})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceRejected, rejected.Status)
	assert.Equal(t, 1, f.invoices.count("on_rejected"))
	assert.Equal(t, adapter.StatusRejected, f.invoiceStatus(t, "inv-1"))

	tasks, err := f.engine.InstanceTasks(context.Background(), instance.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskRejected, tasks[0].Status)
	assert.Equal(t, "wrong customer", tasks[0].ActionComment)

	_, err = f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionReject})
	assert.ErrorIs(t, err, model.ErrTaskNotPending)
	assert.Equal(t, 1, f.invoices.count("on_rejected"))

	resubmitted := f.submit(t, "inv-1")
	assert.NotEqual(t, instance.ID, resubmitted.ID)
}

func TestService_ActErrors(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)

	testCases := []struct {
		description string
		request     *ActRequest
		expect      error
	}{
		{description: "invalid action", request: &ActRequest{TaskID: task.ID, ActorID: "carol", Action: "DELEGATE"}, expect: model.ErrInvalidAction},
		{description: "unknown task", request: &ActRequest{TaskID: "missing", ActorID: "carol", Action: model.ActionApprove}, expect: model.ErrTaskNotFound},
		{description: "not the assignee", request: &ActRequest{TaskID: task.ID, ActorID: "mallory", Action: model.ActionApprove}, expect: model.ErrNotAuthorized},
	}
	for _, testCase := range testCases {
		_, err := f.engine.Act(context.Background(), testCase.request)
		assert.ErrorIs(t, err, testCase.expect, testCase.description)
	}
	assert.Equal(t, model.TaskPending, f.pending(t, instance.ID).Status)
}

func TestService_ConcurrentAct(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrTaskNotPending)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.invoices.count("on_approved"))
}

func TestService_ConcurrentSubmit(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Submit(context.Background(), &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-1", InitiatorID: "alice"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestService_Withdraw(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)

	_, err := f.engine.Withdraw(context.Background(), instance.ID, "carol")
	assert.ErrorIs(t, err, model.ErrNotAuthorized)
	_, err = f.engine.Withdraw(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, model.ErrInstanceNotFound)

	withdrawn, err := f.engine.Withdraw(context.Background(), instance.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceWithdrawn, withdrawn.Status)
	assert.Equal(t, adapter.StatusDraft, f.invoiceStatus(t, "inv-1"))
	assert.Equal(t, 1, f.invoices.count("on_withdrawn"))
	assert.Contains(t, f.kinds("carol"), notify.InstanceWithdrawn)

	stale, err := f.engine.Store().Task(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskWithdrawn, stale.Status)

	_, err = f.engine.Withdraw(context.Background(), instance.ID, "alice")
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
	assert.ErrorIs(t, err, model.ErrTaskNotPending)
}

func TestService_Cancel(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")

	cancelled, err := f.engine.Cancel(context.Background(), instance.ID, "invoice voided")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceCancelled, cancelled.Status)
	assert.Equal(t, 1, f.invoices.count("on_cancelled"))
	assert.Equal(t, adapter.StatusDraft, f.invoiceStatus(t, "inv-1"))
	assert.Contains(t, f.kinds("alice"), notify.InstanceCancelled)

	tasks, err := f.engine.InstanceTasks(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice voided", tasks[0].ActionComment)

	_, err = f.engine.Cancel(context.Background(), instance.ID, "again")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestService_CancelAs(t *testing.T) {
	testCases := []struct {
		description string
		adminRole   string
		actor       string
		expect      error
	}{
		{description: "no administrator role", actor: "frank", expect: model.ErrNotAuthorized},
		{description: "submitter", adminRole: "cfo", actor: "alice", expect: model.ErrNotAuthorized},
		{description: "assignee", adminRole: "cfo", actor: "carol", expect: model.ErrNotAuthorized},
		{description: "administrator", adminRole: "cfo", actor: "frank"},
	}
	for _, testCase := range testCases {
		f := newFixture(t)
		f.engine.adminRole = testCase.adminRole
		f.invoice(t, "inv-1", "100")
		instance := f.submit(t, "inv-1")

		cancelled, err := f.engine.CancelAs(context.Background(), instance.ID, testCase.actor, "")
		if testCase.expect != nil {
			assert.ErrorIs(t, err, testCase.expect, testCase.description)
			assert.Equal(t, adapter.StatusPendingApproval, f.invoiceStatus(t, "inv-1"), testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, model.InstanceCancelled, cancelled.Status, testCase.description)
		assert.Equal(t, adapter.StatusDraft, f.invoiceStatus(t, "inv-1"), testCase.description)
		tasks, err := f.engine.InstanceTasks(context.Background(), instance.ID)
		require.NoError(t, err)
		assert.Equal(t, "cancelled by frank", tasks[0].ActionComment, testCase.description)
		assert.Equal(t, "frank", tasks[0].ActedBy, testCase.description)
	}
}

func TestService_EscalationChain(t *testing.T) {
	manual, restore := clock.Freeze(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	defer restore()
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)

	result, err := f.engine.Escalate(context.Background(), task.ID, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome, "not yet due")

	expect := []struct {
		outcome  Outcome
		assignee string
		level    int
	}{
		{outcome: OutcomeEscalated, assignee: "mike", level: 1},
		{outcome: OutcomeEscalated, assignee: "frank", level: 2},
		{outcome: OutcomeFlagged, assignee: "frank", level: 2},
		{outcome: OutcomeSkipped, assignee: "frank", level: 2},
	}
	for i, step := range expect {
		now := manual.Advance(2 * time.Hour)
		result, err = f.engine.Escalate(context.Background(), task.ID, now)
		require.NoError(t, err, i)
		assert.Equal(t, step.outcome, result.Outcome, i)
		assert.Equal(t, step.assignee, result.Task.AssigneeID, i)
		assert.Equal(t, step.level, result.Task.EscalationLevel, i)
		assert.Equal(t, task.ID, result.Task.ID, i)
		assert.Equal(t, model.TaskPending, result.Task.Status, i)
		if step.outcome == OutcomeEscalated {
			require.NotNil(t, result.Task.DueAt)
			assert.Equal(t, now.Add(time.Hour), *result.Task.DueAt, i)
		}
	}
	assert.True(t, f.pending(t, instance.ID).Overdue)
	assert.Equal(t, []notify.Kind{notify.TaskEscalated}, f.kinds("mike"))
	assert.Equal(t, []notify.Kind{notify.TaskEscalated, notify.TaskOverdue}, f.kinds("frank"))

	approved, err := f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "frank", Action: model.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, approved.Status)
}

func TestService_TimeoutActions(t *testing.T) {
	testCases := []struct {
		description  string
		action       model.TimeoutAction
		expectStatus model.InstanceStatus
		callback     string
	}{
		{description: "reject", action: model.TimeoutReject, expectStatus: model.InstanceRejected, callback: "on_rejected"},
		{description: "approve", action: model.TimeoutApprove, expectStatus: model.InstanceApproved, callback: "on_approved"},
	}
	for _, testCase := range testCases {
		manual, restore := clock.Freeze(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
		flow := model.NewDefinition("SI_TIMEOUT", entity.TypeSalesInvoice)
		flow.AddNode(1, "Clerk", "user:carol").WithTimeout(30 * time.Minute).WithTimeoutAction(testCase.action)
		f := newFixture(t, flow)
		f.invoice(t, "inv-1", "100")
		instance := f.submit(t, "inv-1")
		task := f.pending(t, instance.ID)

		result, err := f.engine.Escalate(context.Background(), task.ID, manual.Advance(time.Hour))
		require.NoError(t, err, testCase.description)
		assert.Equal(t, OutcomeTimedOut, result.Outcome, testCase.description)
		assert.Equal(t, model.TaskTimeout, result.Task.Status, testCase.description)
		assert.Equal(t, testCase.expectStatus, result.Instance.Status, testCase.description)
		assert.Equal(t, 1, f.invoices.count(testCase.callback), testCase.description)
		restore()
	}
}

func TestService_CallbackFailure(t *testing.T) {
	f := newFixture(t)
	f.invoices.fail["on_submit"] = true
	f.invoices.fail["on_approved"] = true
	f.invoice(t, "inv-1", "100")

	instance := f.submit(t, "inv-1")
	assert.Equal(t, model.InstancePending, instance.Status)
	task := f.pending(t, instance.ID)

	approved, err := f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, approved.Status)
	stored, err := f.engine.GetInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, stored.Status)
	assert.Equal(t, adapter.StatusDraft, f.invoiceStatus(t, "inv-1"))
	failures, err := testutil.GatherAndCount(f.metrics.Registry(), "signoff_callback_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, failures)
}

// failingCommit runs transitions against the wrapped store and then fails, discarding staged writes.
type failingCommit struct {
	approval.Store
}

func (f *failingCommit) Transact(ctx context.Context, key string, fn func(ctx context.Context, tx approval.Tx) error) error {
	return f.Store.Transact(ctx, key, func(ctx context.Context, tx approval.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errors.New("connection reset during commit")
	})
}

func TestService_CommitFailure(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	f.invoice(t, "inv-2", "100")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)
	store := f.engine.store
	f.engine.store = &failingCommit{Store: store}
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, &SubmitRequest{BusinessType: entity.TypeSalesInvoice, EntityID: "inv-2", InitiatorID: "alice"})
	require.Error(t, err)
	assert.Equal(t, adapter.StatusDraft, f.invoiceStatus(t, "inv-2"))
	pending, err := store.PendingInstance(ctx, entity.TypeSalesInvoice, "inv-2")
	require.NoError(t, err)
	assert.Nil(t, pending)

	_, err = f.engine.Act(ctx, &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
	require.Error(t, err)
	_, err = f.engine.Withdraw(ctx, instance.ID, "alice")
	require.Error(t, err)
	_, err = f.engine.Cancel(ctx, instance.ID, "voided")
	require.Error(t, err)
	assert.Equal(t, adapter.StatusPendingApproval, f.invoiceStatus(t, "inv-1"))

	assert.Equal(t, 1, f.invoices.count("on_submit"))
	assert.Equal(t, 0, f.invoices.count("on_approved"))
	assert.Equal(t, 0, f.invoices.count("on_withdrawn"))
	assert.Equal(t, 0, f.invoices.count("on_cancelled"))
	assert.Equal(t, []notify.Kind{notify.TaskAssigned}, f.kinds("carol"))

	f.engine.store = store
	approved, err := f.engine.Act(ctx, &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, model.InstanceApproved, approved.Status)
	assert.Equal(t, adapter.StatusApproved, f.invoiceStatus(t, "inv-1"))
}

func TestService_SideEffectFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.notifier = notify.SinkFunc(func(context.Context, *notify.Event) error { return errors.New("smtp down") })
	f.engine.invalidator = invalidate.Func(func(context.Context, invalidate.Change) error { return errors.New("redis down") })
	f.invoice(t, "inv-1", "100")
	instance := f.submit(t, "inv-1")
	assert.Equal(t, model.InstancePending, instance.Status)
}

func TestService_Invalidation(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "50000")
	instance := f.submit(t, "inv-1")
	task := f.pending(t, instance.ID)
	_, err := f.engine.Act(context.Background(), &ActRequest{TaskID: task.ID, ActorID: "carol", Action: model.ActionApprove})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.changes, 2)
	assert.Equal(t, []string{"carol"}, f.changes[0].Assignees)
	assert.Equal(t, []string{"carol", "mike"}, f.changes[1].Assignees)
	assert.Equal(t, "inv-1", f.changes[1].EntityID)
}

func TestService_ListTasks(t *testing.T) {
	f := newFixture(t)
	f.invoice(t, "inv-1", "100")
	f.invoice(t, "inv-2", "100")
	first := f.submit(t, "inv-1")
	f.submit(t, "inv-2")
	_, err := f.engine.Act(context.Background(), &ActRequest{TaskID: f.pending(t, first.ID).ID, ActorID: "carol", Action: model.ActionApprove})
	require.NoError(t, err)

	all, err := f.engine.ListTasks(context.Background(), "carol", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	pending, err := f.engine.ListTasks(context.Background(), "carol", model.TaskPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = f.engine.ListTasks(context.Background(), "", "")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.engine.InstanceTasks(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrInstanceNotFound)
}

func TestNew(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
	registry, err := adapter.NewRegistry()
	require.NoError(t, err)
	_, err = New(WithRegistry(registry))
	assert.Error(t, err)
	svc, err := New(WithRegistry(registry), WithDefinitions(definition.New()))
	require.NoError(t, err)
	assert.NotNil(t, svc.Store())
	assert.ErrorIs(t, registry.Register(entity.NewQuoteAdapter(entity.NewMemoryStores().Quotes)), adapter.ErrFrozen)
}
