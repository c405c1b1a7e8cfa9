package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
	// Blocking makes Publish wait for capacity instead of failing with messaging.ErrFull.
	Blocking bool
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 256,
	}
}

// Message is an in-memory delivery.
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	mu        sync.Mutex
	processed bool
	lastErr   error
}

func (m *Message[T]) T() *T { return &m.payload }

func (m *Message[T]) Attempt() int { return m.attempt }

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %s already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack schedules a redelivery after RetryDelay, or dead-letters the message once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %s already processed", m.id)
	}
	m.processed = true
	m.lastErr = err
	if m.attempt <= m.queue.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: m.queue, attempt: m.attempt + 1}
		time.AfterFunc(m.queue.config.RetryDelay, func() {
			m.queue.requeue(retry)
		})
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish enqueues a copy of t.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q, attempt: 1}
	if !q.config.Blocking {
		select {
		case q.messages <- msg:
			return nil
		default:
			return messaging.ErrFull
		}
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue[T]) requeue(msg *Message[T]) {
	select {
	case q.messages <- msg:
	default:
		if q.config.DeadLetter {
			q.dlqMu.Lock()
			q.dlq = append(q.dlq, msg)
			q.dlqMu.Unlock()
		}
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns payloads that exhausted their retries.
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	ret := make([]T, 0, len(q.dlq))
	for _, msg := range q.dlq {
		ret = append(ret, msg.payload)
	}
	return ret
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
