package clock

import (
	"log/slog"
	"sync"
	"time"
)

// Role identifies which of the session clocks a Clock is.
type Role string

const (
	RolePreparation Role = "preparation"
	RoleTotal       Role = "total"
	RoleRest        Role = "rest"
)

// Mode selects whether a Clock counts down to zero or up from zero.
type Mode string

const (
	Countdown Mode = "countdown"
	CountUp   Mode = "count-up"
)

// DefaultInterval is the tick period used when no interval is configured.
const DefaultInterval = 100 * time.Millisecond

// Update is delivered on every tick while the clock runs.
type Update struct {
	Role       Role
	Value      time.Duration
	Display    string
	Generation uint64
}

// Completion is delivered once when a countdown reaches zero.
type Completion struct {
	Role       Role
	Duration   time.Duration
	Elapsed    time.Duration
	Generation uint64
}

// State is the serializable form of a Clock.
type State struct {
	Role       Role  `json:"role"`
	Mode       Mode  `json:"mode"`
	DurationMs int64 `json:"duration_ms"`
	ValueMs    int64 `json:"value_ms"`
	Running    bool  `json:"is_running"`
	Completed  bool  `json:"completed"`
}

// Duration returns the configured length of the clock.
func (s State) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// Value returns the remaining (countdown) or elapsed (count-up) time.
func (s State) Value() time.Duration {
	return time.Duration(s.ValueMs) * time.Millisecond
}

// Display formats the snapshot value the same way the live clock does.
func (s State) Display() string {
	return display(s.Role, s.Mode, s.Running, s.Value())
}

// Clock is a single countdown or count-up timer. Elapsed time is always
// recomputed from the time source, so a late or skipped tick never drifts
// the value.
type Clock struct {
	mu        sync.Mutex
	role      Role
	mode      Mode
	duration  time.Duration
	stored    time.Duration
	running   bool
	completed bool
	resumedAt time.Time
	gen       uint64
	stop      func()

	interval   time.Duration
	now        TimeSource
	ticks      TickSource
	onTick     func(Update)
	onComplete func(Completion)
	log        *slog.Logger
}

// Option configures a Clock.
type Option func(*Clock)

// WithTimeSource overrides the wall clock used for drift correction.
func WithTimeSource(ts TimeSource) Option {
	return func(c *Clock) { c.now = ts }
}

// WithTickSource selects the tick strategy.
func WithTickSource(src TickSource) Option {
	return func(c *Clock) { c.ticks = src }
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithOnTick registers the per-tick callback.
func WithOnTick(fn func(Update)) Option {
	return func(c *Clock) { c.onTick = fn }
}

// WithOnComplete registers the countdown completion callback.
func WithOnComplete(fn func(Completion)) Option {
	return func(c *Clock) { c.onComplete = fn }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Clock) { c.log = log }
}

// New creates an idle clock with the given duration and mode.
func New(role Role, duration time.Duration, mode Mode, opts ...Option) *Clock {
	c := &Clock{
		role:     role,
		mode:     mode,
		duration: duration,
		interval: DefaultInterval,
		now:      RealTime{},
		ticks:    IntervalSource{},
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stored = c.initial()
	return c
}

// Role returns the clock's role tag.
func (c *Clock) Role() Role {
	return c.role
}

// Configure changes duration and mode and resets the stored value.
// It does nothing while the clock is running.
func (c *Clock) Configure(duration time.Duration, mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.duration = duration
	c.mode = mode
	c.completed = false
	c.stored = c.initial()
	c.gen++
}

// Start begins ticking from the stored value. It does nothing if the clock
// is already running or has completed and was not reset since.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

// Pause folds the elapsed time into the stored value and stops ticking.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.stored = c.currentLocked(c.now.Now())
	c.haltLocked()
}

// Reset stops ticking and restores the configured starting value.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.haltLocked()
	} else {
		c.gen++
	}
	c.completed = false
	c.stored = c.initial()
}

// Value returns the current remaining (countdown) or elapsed (count-up) time.
func (c *Clock) Value() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked(c.now.Now())
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Completed reports whether a countdown reached zero since the last reset.
func (c *Clock) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Generation returns the schedule generation. It changes whenever a running
// schedule is invalidated by pause, reset, configure or restore.
func (c *Clock) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Display formats the current value for the clock's role.
func (c *Clock) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayLocked(c.currentLocked(c.now.Now()))
}

// Snapshot captures the clock's state with the live value.
func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Role:       c.role,
		Mode:       c.mode,
		DurationMs: c.duration.Milliseconds(),
		ValueMs:    c.currentLocked(c.now.Now()).Milliseconds(),
		Running:    c.running,
		Completed:  c.completed,
	}
}

// Restore replaces the clock's state. A running snapshot resumes ticking
// from its persisted value, not from the configured duration.
func (c *Clock) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.haltLocked()
	} else {
		c.gen++
	}
	if s.Mode != "" {
		c.mode = s.Mode
	}
	c.duration = s.Duration()
	c.stored = s.Value()
	if c.stored < 0 {
		c.stored = 0
	}
	c.completed = s.Completed
	if s.Running {
		c.startLocked()
	}
}

func (c *Clock) startLocked() {
	if c.running || c.completed {
		return
	}
	c.gen++
	gen := c.gen
	c.running = true
	c.resumedAt = c.now.Now()

	stop, err := c.ticks.Start(c.interval, func() { c.tick(gen) })
	if err != nil {
		// The value is still computed from timestamps; only updates stop.
		c.log.Error("clock tick source failed", "role", c.role, "error", err)
		return
	}
	c.stop = stop
}

// haltLocked stops the schedule and invalidates queued ticks.
func (c *Clock) haltLocked() {
	c.running = false
	c.gen++
	c.cancelLocked()
}

func (c *Clock) cancelLocked() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Clock) tick(gen uint64) {
	c.mu.Lock()
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}

	value := c.currentLocked(c.now.Now())
	update := Update{Role: c.role, Value: value, Display: c.displayLocked(value), Generation: gen}

	var done *Completion
	if c.mode == Countdown && value <= 0 {
		// Generation is kept so the final update and completion stay current
		// for the owner; the stopped schedule cannot fire again.
		c.running = false
		c.stored = 0
		c.completed = true
		c.cancelLocked()
		done = &Completion{Role: c.role, Duration: c.duration, Elapsed: c.duration, Generation: gen}
	}
	onTick, onComplete := c.onTick, c.onComplete
	c.mu.Unlock()

	if onTick != nil {
		onTick(update)
	}
	if done != nil && onComplete != nil {
		onComplete(*done)
	}
}

func (c *Clock) currentLocked(now time.Time) time.Duration {
	if !c.running {
		return c.stored
	}
	elapsed := now.Sub(c.resumedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if c.mode == CountUp {
		return c.stored + elapsed
	}
	return max(0, c.stored-elapsed)
}

func (c *Clock) initial() time.Duration {
	if c.mode == CountUp {
		return 0
	}
	return c.duration
}

func (c *Clock) displayLocked(value time.Duration) string {
	return display(c.role, c.mode, c.running, value)
}

// The total clock shows hundredths only while it actively counts down.
func display(role Role, mode Mode, running bool, value time.Duration) string {
	if role == RoleTotal && mode == Countdown && running {
		return FormatPrecise(value)
	}
	return Format(value)
}
