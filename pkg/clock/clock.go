// Package clock provides monotonic timestamps and identifier generation for
// the orchestration core (C1 in the system overview). It is the only
// component every other component depends on.
package clock

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock produces monotonic timestamps. The default implementation wraps
// time.Now; tests substitute a fake to make ordering assertions deterministic.
type Clock interface {
	Now() time.Time
}

// IDGen produces unique identifiers for sessions, traces, and interactions.
type IDGen interface {
	NewID() string
}

// System is the production Clock/IDGen backed by time.Now and uuid v4.
type System struct{}

// NewSystem returns the production clock.
func NewSystem() System { return System{} }

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// NewID returns a new random UUID string.
func (System) NewID() string { return uuid.NewString() }

// Fake is a deterministic Clock/IDGen for tests: Now() advances by a fixed
// step on every call so callers can assert strict ordering, and NewID()
// returns sequential, predictable identifiers.
type Fake struct {
	t      atomic.Int64 // unix nanos
	step   time.Duration
	prefix string
	seq    atomic.Int64
}

// NewFake returns a Fake clock starting at start, advancing by step on every
// Now() call.
func NewFake(start time.Time, step time.Duration, prefix string) *Fake {
	f := &Fake{step: step, prefix: prefix}
	f.t.Store(start.UnixNano())
	return f
}

// Now returns the current fake time and advances it by the configured step.
func (f *Fake) Now() time.Time {
	n := f.t.Add(int64(f.step))
	return time.Unix(0, n-int64(f.step))
}

// NewID returns the next sequential fake identifier.
func (f *Fake) NewID() string {
	n := f.seq.Add(1)
	return f.prefix + "-" + strconv.FormatInt(n, 10)
}
