// Package messaging defines a generic at-least-once queue used for
// best-effort side effects such as notifications.
package messaging

import (
	"context"
	"errors"
)

// ErrFull is returned by non-blocking publishers when the queue has no capacity.
var ErrFull = errors.New("messaging: queue is full")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Attempt returns the 1-based delivery attempt.
	Attempt() int

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack reports a failed attempt; the message is redelivered until retries are exhausted.
	Nack(err error) error
}
