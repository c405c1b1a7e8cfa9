package adapter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/signoff/model"
)

// ErrFrozen is returned when registering into a frozen registry.
var ErrFrozen = errors.New("adapter: registry is frozen")

// Registry maps business types to adapters.
type Registry struct {
	adapters map[string]Adapter
	frozen   bool
	mux      sync.RWMutex
}

// Register adds an adapter under its business type.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter: nil adapter")
	}
	businessType := adapter.BusinessType()
	if businessType == "" {
		return fmt.Errorf("adapter: empty business type")
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, ok := r.adapters[businessType]; ok {
		return fmt.Errorf("adapter: %s already registered", businessType)
	}
	r.adapters[businessType] = adapter
	return nil
}

// Resolve returns the adapter for businessType or an error matching model.ErrUnknownEntityType.
func (r *Registry) Resolve(businessType string) (Adapter, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	adapter, ok := r.adapters[businessType]
	if !ok {
		return nil, model.NewError(model.CodeUnknownEntityType, "no adapter registered for %q", businessType)
	}
	return adapter, nil
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mux.Lock()
	r.frozen = true
	r.mux.Unlock()
}

// Types returns the registered business types, sorted.
func (r *Registry) Types() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.adapters))
	for businessType := range r.adapters {
		ret = append(ret, businessType)
	}
	sort.Strings(ret)
	return ret
}

// NewRegistry creates a registry with optional adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	ret := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		if err := ret.Register(adapter); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
