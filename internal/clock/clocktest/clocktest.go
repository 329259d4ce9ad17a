// Package clocktest provides a settable time source and a manually driven
// tick source so clock-driven code can be tested without sleeping.
package clocktest

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// FakeTime is a TimeSource that only moves when Advance is called.
type FakeTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeTime returns a FakeTime starting at start.
func NewFakeTime(start time.Time) *FakeTime {
	return &FakeTime{now: start}
}

// Now returns the fake current time.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake time forward by d.
func (f *FakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// ManualTicks is a TickSource whose schedules fire only when Tick is called.
type ManualTicks struct {
	mu     sync.Mutex
	nextID int
	active map[int]func()
	starts int
}

// NewManualTicks creates an empty ManualTicks.
func NewManualTicks() *ManualTicks {
	return &ManualTicks{active: make(map[int]func())}
}

// Start registers fn. The interval is ignored.
func (m *ManualTicks) Start(_ time.Duration, fn func()) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.active[id] = fn
	m.starts++
	return func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}, nil
}

// Tick fires every registered schedule once, in registration order.
// Callbacks run without holding the source lock so they may stop themselves.
func (m *ManualTicks) Tick() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.active[id]
		m.mu.Unlock()
		if ok {
			fn()
		}
	}
}

// Active returns the number of live schedules.
func (m *ManualTicks) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Starts returns how many schedules were ever started.
func (m *ManualTicks) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// ErrUnavailable is returned by Unavailable.Start.
var ErrUnavailable = errors.New("clocktest: tick source unavailable")

// Unavailable is a TickSource that can never start a schedule.
type Unavailable struct{}

// Start always fails.
func (Unavailable) Start(time.Duration, func()) (func(), error) {
	return nil, ErrUnavailable
}

// Driver advances fake time and fires ticks together.
type Driver struct {
	Time  *FakeTime
	Ticks *ManualTicks
}

// NewDriver returns a Driver starting at a fixed instant.
func NewDriver() *Driver {
	return &Driver{
		Time:  NewFakeTime(time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)),
		Ticks: NewManualTicks(),
	}
}

// Step advances time by d and fires one tick.
func (d *Driver) Step(step time.Duration) {
	d.Time.Advance(step)
	d.Ticks.Tick()
}

// Run advances total in increments of step, ticking after each one.
func (d *Driver) Run(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		s := step
		if elapsed+s > total {
			s = total - elapsed
		}
		d.Step(s)
	}
}
