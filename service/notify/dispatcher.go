package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/signoff/service/messaging/memory"
	"go.uber.org/zap"
)

// Dispatcher decouples event producers from sinks through an in-memory
// queue drained by worker goroutines. Notify never blocks. Each sink of a
// Sinks fan-out is queued separately, so a failing sink is retried alone.
type Dispatcher struct {
	sinks   []Sink
	queue   *memory.Queue[delivery]
	workers int
	logger  *zap.Logger
	errors  chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// delivery is an event bound for one sink.
type delivery struct {
	Event Event
	Sink  int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(d *Dispatcher)

// WithQueueConfig sets the queue retry and buffer settings.
func WithQueueConfig(config memory.Config) DispatcherOption {
	return func(d *Dispatcher) {
		config.Blocking = false
		d.queue = memory.NewQueue[delivery](config)
	}
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(workers int) DispatcherOption {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workers = workers
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger.Named("notify")
		}
	}
}

// Notify enqueues event for asynchronous delivery to every sink.
func (d *Dispatcher) Notify(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("nil event")
	}
	var errs []error
	for i := range d.sinks {
		if err := d.queue.Publish(ctx, &delivery{Event: *event, Sink: i}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		d.logger.Warn("notification dropped", zap.String("kind", string(event.Kind)), zap.String("recipient", event.Recipient), zap.Int("sinks", len(errs)), zap.Error(err))
		return fmt.Errorf("failed to enqueue %s: %w", event.Kind, err)
	}
	return nil
}

// Errors reports delivery failures; sends never block and excess errors are dropped.
func (d *Dispatcher) Errors() <-chan error { return d.errors }

// DeadLetters returns events that exhausted their delivery retries, once per failed sink.
func (d *Dispatcher) DeadLetters() []Event {
	letters := d.queue.DeadLetters()
	ret := make([]Event, 0, len(letters))
	for _, letter := range letters {
		ret = append(ret, letter.Event)
	}
	return ret
}

// Pending returns the number of queued deliveries.
func (d *Dispatcher) Pending() int { return d.queue.Size() }

// Start launches the workers; it is a no-op when already started.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Stop cancels the workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		message, err := d.queue.Consume(ctx)
		if err != nil {
			return
		}
		item := message.T()
		if err := d.deliver(ctx, item); err != nil {
			d.report(fmt.Errorf("deliver %s to %s via %T (attempt %d): %w", item.Event.Kind, item.Event.Recipient, d.sinks[item.Sink], message.Attempt(), err))
			_ = message.Nack(err)
			continue
		}
		_ = message.Ack()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, item *delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return d.sinks[item.Sink].Notify(ctx, &item.Event)
}

func (d *Dispatcher) report(err error) {
	d.logger.Warn("notification delivery failed", zap.Error(err))
	select {
	case d.errors <- err:
	default:
	}
}

// NewDispatcher creates a Dispatcher delivering to sink; a Sinks value is fanned out per sink.
func NewDispatcher(sink Sink, options ...DispatcherOption) *Dispatcher {
	ret := &Dispatcher{
		sinks:   flatten(sink),
		workers: 1,
		logger:  zap.NewNop(),
		errors:  make(chan error, 64),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.queue == nil {
		ret.queue = memory.NewQueue[delivery](memory.DefaultConfig())
	}
	return ret
}

func flatten(sink Sink) []Sink {
	fanOut, ok := sink.(Sinks)
	if !ok {
		if sink == nil {
			return []Sink{Nop}
		}
		return []Sink{sink}
	}
	var ret []Sink
	for _, item := range fanOut {
		if item != nil {
			ret = append(ret, flatten(item)...)
		}
	}
	if len(ret) == 0 {
		return []Sink{Nop}
	}
	return ret
}
