package timer

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/clock/clocktest"
	"github.com/claude/repclock/internal/events"
)

const tick = 100 * time.Millisecond

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) listen(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []events.Type {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Type
	for _, e := range l.events {
		if e.Type != events.TimerUpdate {
			out = append(out, e.Type)
		}
	}
	return out
}

func (l *eventLog) count(t events.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func newTestCoordinator(t *testing.T, d Durations) (*Coordinator, *clocktest.Driver, *eventLog) {
	t.Helper()
	drv := clocktest.NewDriver()
	log := &eventLog{}
	c := New(d,
		WithTimeSource(drv.Time),
		WithTickSource(drv.Ticks),
		WithInterval(tick),
	)
	c.Subscribe(log.listen)
	t.Cleanup(c.Close)
	return c, drv, log
}

func scenarioDurations() Durations {
	return Durations{Preparation: 10 * time.Second, Workout: 60 * time.Second, Rest: 30 * time.Second}
}

func assertTypes(t *testing.T, got []events.Type, want ...events.Type) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func within(got, want time.Duration) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= tick
}

// checkInvariant verifies exactly one clock runs, and it is the phase clock,
// whenever the session is active and not paused, and none run otherwise.
func checkInvariant(t *testing.T, s State) {
	t.Helper()
	running := s.Running()
	switch {
	case s.Active && !s.Paused && s.Phase != PhaseNone:
		if len(running) != 1 {
			t.Fatalf("phase %s: running clocks = %v, want exactly one", s.Phase, running)
		}
		if running[0] != phaseRole(s.Phase) {
			t.Fatalf("phase %s: running clock = %s", s.Phase, running[0])
		}
	default:
		if len(running) != 0 {
			t.Fatalf("active=%v paused=%v: running clocks = %v, want none", s.Active, s.Paused, running)
		}
	}
}

// TestScenarioPreparationWorkoutRest walks the preparation, workout and rest
// sequence and checks that rest time is excluded from the workout clock.
func TestScenarioPreparationWorkoutRest(t *testing.T) {
	c, drv, log := newTestCoordinator(t, scenarioDurations())

	c.StartWorkout()
	if c.Phase() != PhasePreparation {
		t.Fatalf("phase = %s, want preparation", c.Phase())
	}

	drv.Run(10100*time.Millisecond, tick)
	if c.Phase() != PhaseWorkout {
		t.Fatalf("phase after 10.1s = %s, want workout", c.Phase())
	}
	if v := c.Clock(clock.RoleTotal).Value(); !within(v, 60*time.Second) {
		t.Fatalf("total after preparation = %v, want ~60s", v)
	}

	// 5s into the workout.
	drv.Run(4900*time.Millisecond, tick)
	c.StartRest(0)
	total := c.Clock(clock.RoleTotal)
	if total.Running {
		t.Fatal("total clock still running during rest")
	}
	if total.Value() != 55*time.Second {
		t.Fatalf("total at rest start = %v, want 55s", total.Value())
	}
	if c.Phase() != PhaseRest {
		t.Fatalf("phase = %s, want rest", c.Phase())
	}

	drv.Run(30100*time.Millisecond, tick)
	if c.Phase() != PhaseWorkout {
		t.Fatalf("phase after rest = %s, want workout", c.Phase())
	}
	total = c.Clock(clock.RoleTotal)
	if !total.Running {
		t.Fatal("total clock did not resume")
	}
	if v := total.Value(); v > 55*time.Second || !within(v, 55*time.Second) {
		t.Fatalf("total after rest = %v, want ~55s and not reset to 60s", v)
	}

	assertTypes(t, log.types(),
		events.WorkoutStarted,
		events.TimerComplete, events.PreparationComplete,
		events.RestStarted,
		events.TimerComplete, events.RestComplete,
	)
}

// TestTimerUpdatesOnlyFromPhaseClock verifies every timerUpdate comes from the
// clock of the phase it reports.
func TestTimerUpdatesOnlyFromPhaseClock(t *testing.T) {
	c, drv, log := newTestCoordinator(t, scenarioDurations())
	c.StartWorkout()
	drv.Run(12*time.Second, tick)
	c.StartRest(2 * time.Second)
	drv.Run(3*time.Second, tick)

	log.mu.Lock()
	defer log.mu.Unlock()
	updates := 0
	for _, e := range log.events {
		if e.Type != events.TimerUpdate {
			continue
		}
		updates++
		role, phase := e.Data["role"].(string), e.Data["phase"].(string)
		if clock.Role(role) != phaseRole(Phase(phase)) {
			t.Fatalf("update from %s during phase %s", role, phase)
		}
	}
	if updates == 0 {
		t.Fatal("no timer updates emitted")
	}
}

// TestExactlyOneRunning drives random operations and checks the running-clock
// invariant after every step.
func TestExactlyOneRunning(t *testing.T) {
	c, drv, _ := newTestCoordinator(t, Durations{Preparation: 2 * time.Second, Workout: 40 * time.Second, Rest: 3 * time.Second})
	rng := rand.New(rand.NewSource(42))

	ops := []func(){
		c.StartWorkout,
		func() { c.StartRest(0) },
		func() { c.StartRest(time.Duration(rng.Intn(5)) * time.Second) },
		c.PauseWorkout,
		c.ResumeWorkout,
		func() {
			if rng.Intn(8) == 0 {
				c.StopWorkout()
			}
		},
		func() { drv.Run(time.Duration(rng.Intn(40))*tick, tick) },
		func() { drv.Run(time.Duration(rng.Intn(40))*tick, tick) },
	}
	for i := 0; i < 2000; i++ {
		ops[rng.Intn(len(ops))]()
		checkInvariant(t, c.State())
	}
}

// TestRoundTrip verifies setState(getState()) on a fresh coordinator
// reproduces the phase and clock values, including through JSON.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		drive func(c *Coordinator, drv *clocktest.Driver)
		phase Phase
	}{
		{"preparation", func(c *Coordinator, drv *clocktest.Driver) {
			c.StartWorkout()
			drv.Run(3*time.Second, tick)
		}, PhasePreparation},
		{"workout", func(c *Coordinator, drv *clocktest.Driver) {
			c.StartWorkout()
			drv.Run(17*time.Second, tick)
		}, PhaseWorkout},
		{"rest", func(c *Coordinator, drv *clocktest.Driver) {
			c.StartWorkout()
			drv.Run(15*time.Second, tick)
			c.StartRest(45 * time.Second)
			drv.Run(7*time.Second, tick)
		}, PhaseRest},
		{"paused rest", func(c *Coordinator, drv *clocktest.Driver) {
			c.StartWorkout()
			drv.Run(15*time.Second, tick)
			c.StartRest(0)
			drv.Run(4*time.Second, tick)
			c.PauseWorkout()
		}, PhaseRest},
		{"inactive", func(c *Coordinator, drv *clocktest.Driver) {}, PhaseNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, srcDrv, _ := newTestCoordinator(t, scenarioDurations())
			tt.drive(src, srcDrv)
			snap := src.State()
			if snap.Phase != tt.phase {
				t.Fatalf("source phase = %s, want %s", snap.Phase, tt.phase)
			}

			data, err := json.Marshal(snap)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded State
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			dst, dstDrv, _ := newTestCoordinator(t, scenarioDurations())
			dst.SetState(decoded)
			dstDrv.Step(tick)
			got := dst.State()

			if got.Phase != snap.Phase || got.Active != snap.Active || got.Paused != snap.Paused {
				t.Fatalf("restored (%s, active=%v, paused=%v), want (%s, active=%v, paused=%v)",
					got.Phase, got.Active, got.Paused, snap.Phase, snap.Active, snap.Paused)
			}
			for _, role := range []clock.Role{clock.RolePreparation, clock.RoleTotal, clock.RoleRest} {
				want, have := snap.Clock(role), got.Clock(role)
				if !within(have.Value(), want.Value()) {
					t.Errorf("%s value = %v, want %v", role, have.Value(), want.Value())
				}
				if have.Running != want.Running {
					t.Errorf("%s running = %v, want %v", role, have.Running, want.Running)
				}
			}
			checkInvariant(t, got)
		})
	}
}

// TestRestoreRunningResumesFromPersistedValue verifies a restored running
// clock continues from the snapshot, not the configured duration.
func TestRestoreRunningResumesFromPersistedValue(t *testing.T) {
	c, drv, _ := newTestCoordinator(t, scenarioDurations())
	c.SetState(State{
		Active: true,
		Phase:  PhaseWorkout,
		Total:  clock.State{Role: clock.RoleTotal, Mode: clock.Countdown, DurationMs: 60000, ValueMs: 21000, Running: true},
	})
	drv.Run(time.Second, tick)
	if v := c.Clock(clock.RoleTotal).Value(); v != 20*time.Second {
		t.Fatalf("total = %v, want 20s", v)
	}
	if d := c.Clock(clock.RolePreparation).Duration(); d != 10*time.Second {
		t.Fatalf("preparation kept duration = %v, want 10s", d)
	}
}

// TestPauseResumeKeepsPhase verifies resume re-enters the phase it paused in.
func TestPauseResumeKeepsPhase(t *testing.T) {
	for _, phase := range []Phase{PhasePreparation, PhaseWorkout, PhaseRest} {
		t.Run(string(phase), func(t *testing.T) {
			c, drv, log := newTestCoordinator(t, scenarioDurations())
			c.StartWorkout()
			switch phase {
			case PhaseWorkout:
				drv.Run(11*time.Second, tick)
			case PhaseRest:
				drv.Run(11*time.Second, tick)
				c.StartRest(0)
			}
			drv.Run(2*time.Second, tick)

			c.PauseWorkout()
			before := c.Clock(phaseRole(phase)).Value()
			drv.Run(time.Minute, tick)
			if got := c.Clock(phaseRole(phase)).Value(); got != before {
				t.Fatalf("value moved while paused: %v -> %v", before, got)
			}
			checkInvariant(t, c.State())

			c.ResumeWorkout()
			if c.Phase() != phase {
				t.Fatalf("phase after resume = %s, want %s", c.Phase(), phase)
			}
			if !c.Clock(phaseRole(phase)).Running {
				t.Fatalf("%s clock not running after resume", phase)
			}
			if log.count(events.WorkoutPaused) != 1 || log.count(events.WorkoutResumed) != 1 {
				t.Fatalf("pause/resume events = %d/%d", log.count(events.WorkoutPaused), log.count(events.WorkoutResumed))
			}
		})
	}
}

// TestMisuseIsNoop verifies invalid transitions change nothing and emit nothing.
func TestMisuseIsNoop(t *testing.T) {
	c, drv, log := newTestCoordinator(t, scenarioDurations())

	c.StartRest(0)
	c.PauseWorkout()
	c.ResumeWorkout()
	c.StopWorkout()
	if n := len(log.types()); n != 0 {
		t.Fatalf("events from inactive misuse = %v", log.types())
	}
	if c.Active() || c.Phase() != PhaseNone {
		t.Fatal("inactive coordinator changed state")
	}

	c.StartWorkout()
	c.StartWorkout()
	c.ResumeWorkout()
	c.PauseWorkout()
	c.PauseWorkout()
	drv.Run(time.Second, tick)
	assertTypes(t, log.types(), events.WorkoutStarted, events.WorkoutPaused)
}

// TestStopCancelsTicks verifies no update is delivered after stop and all
// clocks are back at their configured values.
func TestStopCancelsTicks(t *testing.T) {
	c, drv, log := newTestCoordinator(t, scenarioDurations())
	c.StartWorkout()
	drv.Run(12*time.Second, tick)
	c.StopWorkout()
	log.reset()

	drv.Run(5*time.Second, tick)
	if n := log.count(events.TimerUpdate); n != 0 {
		t.Fatalf("updates after stop = %d, want 0", n)
	}
	if drv.Ticks.Active() != 0 {
		t.Fatalf("live schedules after stop = %d", drv.Ticks.Active())
	}
	s := c.State()
	if s.Active || s.Phase != PhaseNone {
		t.Fatalf("state after stop = %+v", s)
	}
	if s.Total.Value() != 60*time.Second || s.Preparation.Value() != 10*time.Second {
		t.Fatalf("clocks not reset: total=%v prep=%v", s.Total.Value(), s.Preparation.Value())
	}
}

// TestWorkoutTimeLimit verifies the total clock reaching zero ends the session
// regardless of anything else.
func TestWorkoutTimeLimit(t *testing.T) {
	c, drv, log := newTestCoordinator(t, Durations{Workout: 5 * time.Second, Rest: 30 * time.Second})
	c.StartWorkout()
	if c.Phase() != PhaseWorkout {
		t.Fatalf("phase with no preparation = %s, want workout", c.Phase())
	}
	drv.Run(6*time.Second, tick)

	if c.Active() {
		t.Fatal("session still active after time limit")
	}
	assertTypes(t, log.types(), events.WorkoutStarted, events.TimerComplete, events.WorkoutComplete)

	log.mu.Lock()
	last := log.events[len(log.events)-1]
	log.mu.Unlock()
	if last.Data["reason"] != "time_limit" {
		t.Fatalf("reason = %v, want time_limit", last.Data["reason"])
	}
	c.StartRest(0)
	if c.Phase() != PhaseNone {
		t.Fatal("rest started after completion")
	}
}

// TestCountUpTotal verifies a zero workout duration runs open-ended.
func TestCountUpTotal(t *testing.T) {
	c, drv, log := newTestCoordinator(t, Durations{Rest: 10 * time.Second})
	c.StartWorkout()
	drv.Run(2*time.Hour, time.Second)

	if !c.Active() {
		t.Fatal("count-up session ended")
	}
	if v := c.Clock(clock.RoleTotal).Value(); v != 2*time.Hour {
		t.Fatalf("elapsed = %v, want 2h", v)
	}
	if log.count(events.WorkoutComplete) != 0 {
		t.Fatal("count-up emitted workoutComplete")
	}
}

// TestStartRestWhileResting verifies a second rest restarts the countdown
// with the new duration and the first rest never completes.
func TestStartRestWhileResting(t *testing.T) {
	c, drv, log := newTestCoordinator(t, Durations{Workout: time.Hour, Rest: 30 * time.Second})
	c.StartWorkout()
	c.StartRest(0)
	drv.Run(20*time.Second, tick)
	c.StartRest(20 * time.Second)
	drv.Run(15*time.Second, tick)

	if c.Phase() != PhaseRest {
		t.Fatalf("phase = %s, want rest", c.Phase())
	}
	if v := c.Clock(clock.RoleRest).Value(); v != 5*time.Second {
		t.Fatalf("rest remaining = %v, want 5s", v)
	}
	if log.count(events.RestComplete) != 0 {
		t.Fatal("restarted rest completed early")
	}
}

// TestListenerMayCallBack verifies a listener can drive the coordinator from
// inside an event without deadlocking or reordering events.
func TestListenerMayCallBack(t *testing.T) {
	c, drv, log := newTestCoordinator(t, Durations{Workout: time.Hour, Rest: 2 * time.Second})
	rests := 0
	c.Subscribe(func(e events.Event) {
		log.listen(e)
		if e.Type == events.RestComplete && rests < 2 {
			rests++
			c.StartRest(0)
		}
	})

	c.StartWorkout()
	c.StartRest(0)
	drv.Run(10*time.Second, tick)

	assertTypes(t, log.types(),
		events.WorkoutStarted,
		events.RestStarted, events.TimerComplete, events.RestComplete,
		events.RestStarted, events.TimerComplete, events.RestComplete,
		events.RestStarted, events.TimerComplete, events.RestComplete,
	)
	if c.Phase() != PhaseWorkout {
		t.Fatalf("phase = %s, want workout", c.Phase())
	}
}

// TestCompletionRacingPause verifies a clock that reaches zero just as the
// session is paused is settled exactly once, whichever side wins the lock.
func TestCompletionRacingPause(t *testing.T) {
	drv := clocktest.NewDriver()
	src := &capturingSource{}
	c := New(Durations{Workout: time.Hour, Rest: time.Second},
		WithTimeSource(drv.Time), WithTickSource(src), WithInterval(tick))
	log := &eventLog{}
	c.Subscribe(log.listen)
	defer c.Close()

	c.StartWorkout()
	c.StartRest(0)
	drv.Time.Advance(time.Second)

	// Hold the coordinator lock so the rest clock completes internally while
	// its callbacks wait.
	c.mu.Lock()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		src.last()()
	}()
	deadline := time.Now().Add(2 * time.Second)
	for !c.rest.Completed() {
		if time.Now().After(deadline) {
			c.mu.Unlock()
			t.Fatal("rest clock did not complete")
		}
		time.Sleep(time.Millisecond)
	}
	c.mu.Unlock()

	c.PauseWorkout()
	wg.Wait()

	if c.Phase() != PhaseWorkout {
		t.Fatalf("phase = %s, want workout", c.Phase())
	}
	if !c.Paused() {
		t.Fatal("session not paused")
	}
	c.ResumeWorkout()
	checkInvariant(t, c.State())
	if n := log.count(events.RestComplete); n != 1 {
		t.Fatalf("restComplete = %d, want 1", n)
	}
}

type capturingSource struct {
	mu  sync.Mutex
	fns []func()
}

func (s *capturingSource) Start(_ time.Duration, fn func()) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	return func() {}, nil
}

func (s *capturingSource) last() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fns[len(s.fns)-1]
}
