// Package timeutil provides a testable clock abstraction and a loop pacer
// used to play simulated episodes back at wall-clock rate.
package timeutil

import (
	"sync"
	"time"
)

// Clock abstracts the time operations the pacer needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (RealClock) Sleep(d time.Duration)           { time.Sleep(d) }

// Pacer slows a simulation loop down to wall-clock rate. Each Wait blocks
// until the next whole period since the pacer was created has elapsed.
// A loop that is already behind schedule is not delayed further; the pacer
// never sleeps to "catch up" on missed periods.
type Pacer struct {
	clock  Clock
	period time.Duration
	start  time.Time
	ticks  int64
}

// NewPacer returns a pacer that releases the caller once per period,
// measured against clock.
func NewPacer(clock Clock, period time.Duration) *Pacer {
	return &Pacer{clock: clock, period: period, start: clock.Now()}
}

// Wait blocks until the deadline of the next period.
func (p *Pacer) Wait() {
	p.ticks++
	deadline := p.start.Add(time.Duration(p.ticks) * p.period)
	if d := deadline.Sub(p.clock.Now()); d > 0 {
		p.clock.Sleep(d)
	}
}

// Elapsed returns the wall-clock time since the pacer started.
func (p *Pacer) Elapsed() time.Duration {
	return p.clock.Since(p.start)
}

// MockClock is a manually controlled clock for testing. Sleep advances the
// clock by the requested duration so paced loops run instantly in tests.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep records the sleep duration and advances the clock by it.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}
