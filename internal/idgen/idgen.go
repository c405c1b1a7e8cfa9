// Package idgen generates opaque identifiers for instances, tasks and messages.
// Callers must treat identifiers as opaque strings.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// NewFunc returns a new identifier; tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns NewFunc().
func New() string { return NewFunc() }

// Sequence installs a deterministic generator producing prefix-1, prefix-2, ...
// The returned func restores the previous generator.
func Sequence(prefix string) func() {
	var counter int64
	previous := NewFunc
	NewFunc = func() string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&counter, 1))
	}
	return func() { NewFunc = previous }
}
