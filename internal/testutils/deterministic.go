// Package testutils provides deterministic clocks, ids and fakes for gemchat tests.
// These utilities ensure consistent test output while keeping production formats.
package testutils

import (
	"fmt"
	"sync"
	"time"

	"gemchat/pkg/chattypes"
)

// BaseTime is the first instant a StepClock reports.
var BaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var _ chattypes.Clock = (*StepClock)(nil)

// StepClock returns incrementing timestamps: BaseTime, BaseTime+step, ...
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at BaseTime. A zero step means one second.
func NewStepClock(step time.Duration) *StepClock {
	if step == 0 {
		step = time.Second
	}
	return &StepClock{next: BaseTime, step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (f FixedClock) Now() time.Time {
	return time.Time(f)
}

// DeterministicIDs returns a generator of UUID v4 shaped ids:
// 00000001-0000-4000-8000-000000000001, 00000002-0000-4000-8000-000000000002, ...
func DeterministicIDs() func() string {
	var (
		mu      sync.Mutex
		counter uint64
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%08x-0000-4000-8000-%012x", counter, counter)
	}
}
