// Package clock provides the process time source; tests replace NowFunc or use Freeze.
package clock

import (
	"sync"
	"time"
)

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc() truncated to microseconds so values round-trip through postgres.
func Now() time.Time { return NowFunc().UTC().Truncate(time.Microsecond) }

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Freeze installs a Manual clock starting at at; the returned func restores the previous source.
func Freeze(at time.Time) (*Manual, func()) {
	manual := &Manual{now: at}
	previous := NowFunc
	NowFunc = manual.Now
	return manual, func() { NowFunc = previous }
}
