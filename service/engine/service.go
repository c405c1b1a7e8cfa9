package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/runtime/condition"
	"github.com/viant/signoff/service/adapter"
	"github.com/viant/signoff/service/assignee"
	"github.com/viant/signoff/service/dao/approval"
	"github.com/viant/signoff/service/dao/approval/memory"
	"github.com/viant/signoff/service/dao/definition"
	"github.com/viant/signoff/service/invalidate"
	"github.com/viant/signoff/service/metrics"
	"github.com/viant/signoff/service/notify"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap"
)

// Service is the approval workflow engine.
type Service struct {
	store       approval.Store
	registry    *adapter.Registry
	definitions *definition.Service
	resolver    *assignee.Resolver
	adminRole   string
	notifier    notify.Sink
	invalidator invalidate.Invalidator
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Store returns the approval store.
func (s *Service) Store() approval.Store { return s.store }

// Definitions returns the flow definition service.
func (s *Service) Definitions() *definition.Service { return s.definitions }

// Registry returns the adapter registry.
func (s *Service) Registry() *adapter.Registry { return s.registry }

// Metrics returns the metrics collectors.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// effects are post-commit side effects of a transition.
type effects struct {
	callbacks []pendingCallback
	statuses  []model.InstanceStatus
	events    []*notify.Event
	change    *invalidate.Change
}

type pendingCallback struct {
	name string
	fn   callbackFunc
}

// callback defers an adapter callback until the transition commits.
func (e *effects) callback(name string, fn callbackFunc) {
	e.callbacks = append(e.callbacks, pendingCallback{name: name, fn: fn})
}

// record notes a status change for metrics once committed.
func (e *effects) record(status model.InstanceStatus) {
	e.statuses = append(e.statuses, status)
}

func (e *effects) notify(event *notify.Event) {
	if event.Recipient == "" {
		return
	}
	e.events = append(e.events, event)
}

func (e *effects) invalidate(instance *model.Instance, assignees ...string) {
	change := invalidate.ChangeOf(instance, assignees...)
	e.change = &change
}

// transition carries the state one mutation works on.
type transition struct {
	instance   *model.Instance
	definition *model.Definition
	adapter    adapter.Adapter
	now        time.Time
	effects    effects
}

// advance walks the nodes after order. Nodes whose condition is false are recorded as
// skipped; the first applicable node gets a new pending task. With no applicable node
// left the instance is approved and nil is returned.
func (s *Service) advance(ctx context.Context, t *transition, order int, attrs model.Attributes) (*model.Task, error) {
	instance := t.instance
	instance.UpdatedAt = t.now
	for _, node := range t.definition.After(order) {
		if !condition.Evaluate(node.When, attrs) {
			instance.SkippedNodes = append(instance.SkippedNodes, node.Order)
			continue
		}
		assigneeID, err := s.resolver.ResolveText(ctx, node.Assignee, assignee.Subject{Initiator: instance.SubmittedBy})
		if err != nil {
			return nil, fmt.Errorf("node %d of %s: %w", node.Order, t.definition.Key(), err)
		}
		instance.CurrentNodeOrder = node.Order
		task := &model.Task{
			ID:         idgen.New(),
			InstanceID: instance.ID,
			NodeOrder:  node.Order,
			NodeName:   node.Name,
			AssigneeID: assigneeID,
			Status:     model.TaskPending,
			DueAt:      model.Due(t.now, node.Timeout),
			CreatedAt:  t.now,
			UpdatedAt:  t.now,
		}
		t.effects.notify(notify.ForTask(notify.TaskAssigned, instance, task))
		return task, nil
	}
	instance.Complete(model.InstanceApproved, t.now)
	t.effects.notify(notify.ForInstance(notify.InstanceApproved, instance, instance.SubmittedBy))
	return nil, nil
}

// save persists a resolved task, the instance and the successor task in that order.
func save(ctx context.Context, tx approval.Tx, resolved *model.Task, instance *model.Instance, next *model.Task) error {
	if resolved != nil {
		if err := tx.SaveTask(ctx, resolved); err != nil {
			return err
		}
	}
	if err := tx.SaveInstance(ctx, instance); err != nil {
		return err
	}
	if next != nil {
		return tx.SaveTask(ctx, next)
	}
	return nil
}

// entityData reads fresh attributes; adapter failures abort the operation.
func entityData(ctx context.Context, a adapter.Adapter, entityID string) (model.Attributes, error) {
	attrs, err := a.GetEntityData(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", a.BusinessType(), entityID, err)
	}
	return attrs, nil
}

type callbackFunc func(ctx context.Context, entityID string, instance *model.Instance) error

// callback runs an adapter callback; errors and panics are logged and counted only.
func (s *Service) callback(ctx context.Context, name string, instance *model.Instance, fn callbackFunc) {
	defer func() {
		if r := recover(); r != nil {
			s.callbackFailed(name, instance, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(ctx, instance.EntityID, instance.Clone()); err != nil {
		s.callbackFailed(name, instance, err)
	}
}

func (s *Service) callbackFailed(name string, instance *model.Instance, err error) {
	s.metrics.CallbackFailure(instance.BusinessType, name)
	s.logger.Error("adapter callback failed",
		zap.String("callback", name),
		zap.String("businessType", instance.BusinessType),
		zap.String("entityId", instance.EntityID),
		zap.String("instanceId", instance.ID),
		zap.Error(err))
}

// completed schedules the callback matching a terminal instance status.
func (s *Service) completed(t *transition) {
	a, instance := t.adapter, t.instance
	switch instance.Status {
	case model.InstanceApproved:
		t.effects.callback("on_approved", a.OnApproved)
	case model.InstanceRejected:
		t.effects.callback("on_rejected", a.OnRejected)
	case model.InstanceWithdrawn:
		t.effects.callback("on_withdrawn", a.OnWithdrawn)
	case model.InstanceCancelled:
		if canceller, ok := a.(adapter.Canceller); ok {
			t.effects.callback("on_cancelled", canceller.OnCancelled)
		}
	default:
		return
	}
	t.effects.record(instance.Status)
}

// apply runs adapter callbacks and delivers side effects of a committed transition;
// failures never reach the caller.
func (s *Service) apply(ctx context.Context, t *transition) {
	ctx = context.WithoutCancel(ctx)
	e := &t.effects
	for _, pending := range e.callbacks {
		s.callback(ctx, pending.name, t.instance, pending.fn)
	}
	for _, status := range e.statuses {
		s.metrics.Transition(t.instance.BusinessType, status)
	}
	for _, event := range e.events {
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.metrics.SideEffectFailure("notify")
			s.logger.Warn("notification failed", zap.String("kind", string(event.Kind)), zap.String("recipient", event.Recipient), zap.Error(err))
		}
	}
	if e.change == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, *e.change); err != nil {
		s.metrics.SideEffectFailure("invalidate")
		s.logger.Warn("cache invalidation failed", zap.String("instanceId", e.change.InstanceID), zap.Error(err))
	}
}

// begin opens a span for operation; the returned func records the outcome.
func (s *Service) begin(ctx context.Context, operation string, attrs map[string]string) (context.Context, func(err error)) {
	started := time.Now()
	ctx, span := tracing.StartSpan(ctx, "engine."+operation, "INTERNAL")
	span.WithAttributes(attrs)
	return ctx, func(err error) {
		tracing.EndSpan(span, err)
		s.metrics.Operation(operation, started, err)
		if err == nil {
			return
		}
		fields := []zap.Field{zap.String("operation", operation), zap.Error(err)}
		for k, v := range attrs {
			fields = append(fields, zap.String(k, v))
		}
		switch {
		case model.IsConfiguration(err):
			s.logger.Error("engine configuration error", fields...)
		case model.CodeOf(err) == "":
			s.logger.Error("engine operation failed", fields...)
		default:
			s.logger.Debug("engine operation rejected", fields...)
		}
	}
}

// load reads an instance with its adapter and pinned definition.
func (s *Service) load(ctx context.Context, reader approval.Reader, instanceID string) (*transition, error) {
	instance, err := reader.Instance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	a, err := s.registry.Resolve(instance.BusinessType)
	if err != nil {
		return nil, err
	}
	def, err := s.definitions.Lookup(instance.FlowCode, instance.FlowVersion)
	if err != nil {
		return nil, err
	}
	return &transition{instance: instance, definition: def, adapter: a, now: clock.Now()}, nil
}

// New creates an engine. A registry and a definition service are required.
func New(options ...Option) (*Service, error) {
	ret := &Service{logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.registry == nil {
		return nil, errors.New("engine: adapter registry is required")
	}
	if ret.definitions == nil {
		return nil, errors.New("engine: definition service is required")
	}
	if ret.store == nil {
		ret.store = memory.New()
	}
	if ret.resolver == nil {
		ret.resolver = assignee.NewResolver(nil)
	}
	if ret.notifier == nil {
		ret.notifier = notify.Nop
	}
	if ret.invalidator == nil {
		ret.invalidator = invalidate.Nop
	}
	if ret.metrics == nil {
		ret.metrics = metrics.New()
	}
	ret.logger = ret.logger.Named("engine")
	ret.registry.Freeze()
	return ret, nil
}
