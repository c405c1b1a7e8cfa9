package store

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps copies of *T keyed by K, so callers never share mutable state with the store.
// Records implementing criteria.Fields can be filtered by List parameters.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key (usually the ID field) from a value.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	clone := *v
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = &clone
	return nil
}

// Load returns a copy of the record stored under key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns copies of the stored records matching parameters, in key order when K is a string.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if len(parameters) > 0 {
			fields, ok := any(v).(criteria.Fields)
			if !ok || !criteria.Match(fields, parameters) {
				continue
			}
		}
		clone := *v
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		left, lok := any(s.keySelector(out[i])).(string)
		right, rok := any(s.keySelector(out[j])).(string)
		return lok && rok && left < right
	})
	return out, nil
}
