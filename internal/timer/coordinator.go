// Package timer sequences the preparation, workout and rest clocks of a
// single workout session.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/events"
)

// Phase is the session's current timing state.
type Phase string

const (
	PhaseNone        Phase = "none"
	PhasePreparation Phase = "preparation"
	PhaseRest        Phase = "rest"
	PhaseWorkout     Phase = "workout"
)

// Durations configures the three clocks. A zero Workout duration makes the
// total clock count up with no time limit.
type Durations struct {
	Preparation time.Duration `json:"preparation"`
	Workout     time.Duration `json:"workout"`
	Rest        time.Duration `json:"rest"`
}

// DefaultDurations returns the durations used when none are configured.
func DefaultDurations() Durations {
	return Durations{
		Preparation: 10 * time.Second,
		Workout:     60 * time.Minute,
		Rest:        90 * time.Second,
	}
}

// State is the serializable snapshot of a Coordinator.
type State struct {
	Active      bool        `json:"is_active"`
	Paused      bool        `json:"is_paused"`
	Phase       Phase       `json:"active_phase"`
	Preparation clock.State `json:"preparation"`
	Total       clock.State `json:"total"`
	Rest        clock.State `json:"rest"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// Clock returns the snapshot of the clock with the given role.
func (s State) Clock(role clock.Role) clock.State {
	switch role {
	case clock.RolePreparation:
		return s.Preparation
	case clock.RoleRest:
		return s.Rest
	default:
		return s.Total
	}
}

// Running returns the roles of clocks marked running.
func (s State) Running() []clock.Role {
	var out []clock.Role
	for _, cs := range []clock.State{s.Preparation, s.Total, s.Rest} {
		if cs.Running {
			out = append(out, cs.Role)
		}
	}
	return out
}

type options struct {
	now      clock.TimeSource
	ticks    clock.TickSource
	interval time.Duration
	bus      *events.Bus
	log      *slog.Logger
}

// Option configures a Coordinator.
type Option func(*options)

// WithTimeSource sets the time source shared by all clocks.
func WithTimeSource(ts clock.TimeSource) Option {
	return func(o *options) { o.now = ts }
}

// WithTickSource sets the tick strategy shared by all clocks.
func WithTickSource(src clock.TickSource) Option {
	return func(o *options) { o.ticks = src }
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithBus publishes events on an existing bus.
func WithBus(b *events.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Coordinator owns the preparation, total and rest clocks and guarantees at
// most one of them runs at a time.
//
// All clock mutations happen under mu. Clock callbacks are revalidated under
// mu against the current phase and the clock's generation, so a tick or
// completion from a schedule that was paused or reset in the meantime is
// dropped.
type Coordinator struct {
	mu        sync.Mutex
	durations Durations
	prep      *clock.Clock
	total     *clock.Clock
	rest      *clock.Clock
	active    bool
	paused    bool
	closed    bool
	phase     Phase

	now clock.TimeSource
	bus *events.Bus
	log *slog.Logger
}

// New creates an inactive Coordinator.
func New(d Durations, opts ...Option) *Coordinator {
	o := options{
		now:      clock.RealTime{},
		ticks:    clock.IntervalSource{},
		interval: clock.DefaultInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.DiscardHandler)
	}
	if o.bus == nil {
		o.bus = events.NewBus(o.now.Now)
	}

	c := &Coordinator{
		durations: d,
		phase:     PhaseNone,
		now:       o.now,
		bus:       o.bus,
		log:       o.log,
	}
	clockOpts := []clock.Option{
		clock.WithTimeSource(o.now),
		clock.WithTickSource(o.ticks),
		clock.WithInterval(o.interval),
		clock.WithOnTick(c.onTick),
		clock.WithOnComplete(c.onComplete),
		clock.WithLogger(o.log),
	}
	c.prep = clock.New(clock.RolePreparation, d.Preparation, clock.Countdown, clockOpts...)
	c.total = clock.New(clock.RoleTotal, d.Workout, totalMode(d.Workout), clockOpts...)
	c.rest = clock.New(clock.RoleRest, d.Rest, clock.Countdown, clockOpts...)
	return c
}

func totalMode(workout time.Duration) clock.Mode {
	if workout <= 0 {
		return clock.CountUp
	}
	return clock.Countdown
}

// Bus returns the bus events are published on.
func (c *Coordinator) Bus() *events.Bus {
	return c.bus
}

// Subscribe registers the single event listener.
func (c *Coordinator) Subscribe(l events.Listener) {
	c.bus.Subscribe(l)
}

// Durations returns the configured durations.
func (c *Coordinator) Durations() Durations {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durations
}

// StartWorkout activates the session and starts the preparation countdown.
// With no preparation configured the workout clock starts immediately.
func (c *Coordinator) StartWorkout() {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.active {
		return
	}
	c.prep.Configure(c.durations.Preparation, clock.Countdown)
	c.total.Configure(c.durations.Workout, totalMode(c.durations.Workout))
	c.rest.Configure(c.durations.Rest, clock.Countdown)

	c.active = true
	c.paused = false
	c.bus.Emit(events.WorkoutStarted, map[string]any{
		"preparation_ms": c.durations.Preparation.Milliseconds(),
		"workout_ms":     c.durations.Workout.Milliseconds(),
	})
	if c.durations.Preparation > 0 {
		c.phase = PhasePreparation
	} else {
		c.phase = PhaseWorkout
	}
	c.log.Info("workout started", "phase", c.phase)
	c.runPhaseLocked()
}

// StartRest pauses the running clock and starts the rest countdown. A
// positive override replaces the default rest duration for this rest only.
// Starting rest while already resting restarts the countdown.
func (c *Coordinator) StartRest(override time.Duration) {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleLocked()
	if c.closed || !c.active {
		return
	}
	d := c.durations.Rest
	if override > 0 {
		d = override
	}

	switch c.phase {
	case PhasePreparation:
		c.prep.Reset()
	case PhaseWorkout:
		c.total.Pause()
	}
	c.rest.Reset()
	c.rest.Configure(d, clock.Countdown)

	c.paused = false
	c.phase = PhaseRest
	c.bus.Emit(events.RestStarted, map[string]any{"duration_ms": d.Milliseconds()})
	c.rest.Start()
}

// PauseWorkout pauses the clock of the current phase. The phase is kept.
func (c *Coordinator) PauseWorkout() {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleLocked()
	if c.closed || !c.active || c.paused {
		return
	}
	if cl := c.phaseClock(); cl != nil {
		cl.Pause()
	}
	c.paused = true
	c.bus.Emit(events.WorkoutPaused, map[string]any{"phase": string(c.phase)})
}

// ResumeWorkout resumes the clock of the phase the session was paused in.
func (c *Coordinator) ResumeWorkout() {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.active || !c.paused {
		return
	}
	c.paused = false
	c.bus.Emit(events.WorkoutResumed, map[string]any{"phase": string(c.phase)})
	c.runPhaseLocked()
}

// StopWorkout resets all clocks and deactivates the session.
func (c *Coordinator) StopWorkout() {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleLocked()
	if c.closed || !c.active {
		return
	}
	c.prep.Reset()
	c.total.Reset()
	c.rest.Reset()
	c.active = false
	c.paused = false
	c.phase = PhaseNone
	c.bus.Emit(events.WorkoutStopped, nil)
	c.log.Info("workout stopped")
}

// State returns a snapshot with live clock values.
func (c *Coordinator) State() State {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		st := c.stateLocked()
		if c.closed || !st.Active || st.Paused || st.Phase == PhaseNone {
			return st
		}
		// The phase clock can complete between settling and snapshotting,
		// so the check uses the snapshot itself.
		cs := st.Clock(phaseRole(st.Phase))
		if cs.Running || !cs.Completed {
			return st
		}
		c.completeLocked(cs)
	}
}

func (c *Coordinator) stateLocked() State {
	return State{
		Active:      c.active,
		Paused:      c.paused,
		Phase:       c.phase,
		Preparation: c.prep.Snapshot(),
		Total:       c.total.Snapshot(),
		Rest:        c.rest.Snapshot(),
		CapturedAt:  c.now.Now(),
	}
}

// SetState replaces the coordinator's state with s. Only the clock of the
// active phase resumes ticking, and only when the session was active and not
// paused; it continues from its persisted value.
func (c *Coordinator) SetState(s State) {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	active := s.Active && s.Phase != PhaseNone && s.Phase != ""
	for _, pair := range []struct {
		cl *clock.Clock
		st clock.State
	}{{c.prep, s.Preparation}, {c.total, s.Total}, {c.rest, s.Rest}} {
		st := pair.st
		st.Running = false
		if st.Mode == "" {
			// An empty snapshot keeps the configured clock.
			pair.cl.Reset()
			continue
		}
		pair.cl.Restore(st)
	}

	c.active = active
	if !active {
		c.phase = PhaseNone
		c.paused = false
		return
	}
	c.phase = s.Phase
	c.paused = s.Paused
	if !c.paused {
		c.runPhaseLocked()
	}
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked()
	return c.phase
}

// Active reports whether a session is in progress.
func (c *Coordinator) Active() bool {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked()
	return c.active
}

// Paused reports whether the whole session is paused.
func (c *Coordinator) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Clock returns a snapshot of one clock.
func (c *Coordinator) Clock(role clock.Role) clock.State {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked()
	return c.clockFor(role).Snapshot()
}

// Close stops every tick schedule while keeping clock values. The
// coordinator ignores all further calls.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.prep.Pause()
	c.total.Pause()
	c.rest.Pause()
}

func (c *Coordinator) clockFor(role clock.Role) *clock.Clock {
	switch role {
	case clock.RolePreparation:
		return c.prep
	case clock.RoleRest:
		return c.rest
	default:
		return c.total
	}
}

func phaseRole(p Phase) clock.Role {
	switch p {
	case PhasePreparation:
		return clock.RolePreparation
	case PhaseRest:
		return clock.RoleRest
	}
	return clock.RoleTotal
}

func (c *Coordinator) phaseClock() *clock.Clock {
	switch c.phase {
	case PhasePreparation:
		return c.prep
	case PhaseRest:
		return c.rest
	case PhaseWorkout:
		return c.total
	}
	return nil
}

// settleLocked applies a completion that the phase clock reached but whose
// callback has not been processed yet, so callers never observe an active,
// unpaused session with no running clock.
func (c *Coordinator) settleLocked() {
	if c.closed || !c.active || c.paused {
		return
	}
	if cl := c.phaseClock(); cl != nil && cl.Completed() {
		c.completeLocked(cl.Snapshot())
	}
}

// runPhaseLocked starts the clock of the current phase, or applies its
// completion if it already reached zero.
func (c *Coordinator) runPhaseLocked() {
	cl := c.phaseClock()
	if cl == nil {
		return
	}
	if cl.Completed() {
		c.completeLocked(cl.Snapshot())
		return
	}
	cl.Start()
}

// current reports whether a callback from role's clock at generation gen
// belongs to the running phase.
func (c *Coordinator) current(role clock.Role, gen uint64) bool {
	if c.closed || !c.active || c.paused {
		return false
	}
	cl := c.phaseClock()
	if cl == nil || cl.Role() != role {
		return false
	}
	return cl.Generation() == gen
}

func (c *Coordinator) onTick(u clock.Update) {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current(u.Role, u.Generation) {
		return
	}
	c.bus.Emit(events.TimerUpdate, map[string]any{
		"role":     string(u.Role),
		"phase":    string(c.phase),
		"value_ms": u.Value.Milliseconds(),
		"display":  u.Display,
	})
}

func (c *Coordinator) onComplete(done clock.Completion) {
	defer c.bus.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.current(done.Role, done.Generation) {
		return
	}
	c.completeLocked(c.clockFor(done.Role).Snapshot())
}

func (c *Coordinator) completeLocked(st clock.State) {
	c.bus.Emit(events.TimerComplete, map[string]any{
		"role":        string(st.Role),
		"duration_ms": st.DurationMs,
	})

	switch st.Role {
	case clock.RolePreparation:
		c.phase = PhaseWorkout
		c.bus.Emit(events.PreparationComplete, nil)
		c.runPhaseLocked()

	case clock.RoleRest:
		c.phase = PhaseWorkout
		c.bus.Emit(events.RestComplete, map[string]any{"duration_ms": st.DurationMs})
		c.runPhaseLocked()

	case clock.RoleTotal:
		c.prep.Pause()
		c.rest.Pause()
		c.active = false
		c.paused = false
		c.phase = PhaseNone
		c.bus.Emit(events.WorkoutComplete, map[string]any{"reason": "time_limit"})
		c.log.Info("workout time limit reached")
	}
}
