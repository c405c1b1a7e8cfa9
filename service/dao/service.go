package dao

import (
	"context"
)

// Service is a generic keyed repository.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	// Load returns ErrNotFound when no record exists under id.
	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
