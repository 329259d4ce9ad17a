package clock

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/repclock/internal/clock/clocktest"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestIntervalSourceTicksUntilStopped verifies the in-process source fires
// repeatedly and stops firing after stop.
func TestIntervalSourceTicksUntilStopped(t *testing.T) {
	var n atomic.Int32
	stop, err := IntervalSource{}.Start(2*time.Millisecond, func() { n.Add(1) })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return n.Load() >= 3 })
	stop()

	time.Sleep(10 * time.Millisecond)
	settled := n.Load()
	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != settled {
		t.Fatalf("ticks after stop: %d -> %d", settled, got)
	}
}

// TestIntervalSourceStopFromCallback verifies fn may stop its own schedule.
func TestIntervalSourceStopFromCallback(t *testing.T) {
	var n atomic.Int32
	var stop func()
	done := make(chan struct{})
	stop, _ = IntervalSource{}.Start(time.Millisecond, func() {
		if n.Add(1) == 2 {
			stop()
			close(done)
		}
	})
	<-done
	time.Sleep(10 * time.Millisecond)
	if got := n.Load(); got != 2 {
		t.Fatalf("ticks = %d, want 2", got)
	}
}

// TestWorkerPoolDeliversTicks verifies an isolated worker delivers ticks and
// releases its slot when stopped.
func TestWorkerPoolDeliversTicks(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	var n atomic.Int32
	stop, err := pool.Start(2*time.Millisecond, func() { n.Add(1) })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pool.Active() != 1 {
		t.Fatalf("active = %d, want 1", pool.Active())
	}
	waitFor(t, func() bool { return n.Load() >= 3 })

	stop()
	stop() // idempotent
	if pool.Active() != 0 {
		t.Fatalf("active after stop = %d, want 0", pool.Active())
	}
}

// TestWorkerPoolExhausted verifies a full pool reports ErrWorkerUnavailable.
func TestWorkerPoolExhausted(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	stop, err := pool.Start(time.Hour, func() {})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := pool.Start(time.Hour, func() {}); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("second Start error = %v, want ErrWorkerUnavailable", err)
	}
	stop()
	stop2, err := pool.Start(time.Hour, func() {})
	if err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	stop2()
}

// TestWorkerPoolClosed verifies a closed pool refuses new schedules.
func TestWorkerPoolClosed(t *testing.T) {
	pool := NewWorkerPool(4)
	if _, err := pool.Start(time.Hour, func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pool.Close()

	if pool.Active() != 0 {
		t.Fatalf("active after close = %d, want 0", pool.Active())
	}
	if _, err := pool.Start(time.Hour, func() {}); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Start after close error = %v, want ErrWorkerUnavailable", err)
	}
}

// TestFallbackLogsAndUsesSecondary verifies an unavailable primary degrades to
// the secondary source with a warning.
func TestFallbackLogsAndUsesSecondary(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	manual := clocktest.NewManualTicks()

	src := Fallback(clocktest.Unavailable{}, manual, log)
	var fired bool
	stop, err := src.Start(tick, func() { fired = true })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	manual.Tick()
	if !fired {
		t.Fatal("secondary source did not fire")
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("log = %q, want a warning", buf.String())
	}
}

// TestFallbackEquivalentValues verifies the worker and in-process paths
// produce the same values for the same time source.
func TestFallbackEquivalentValues(t *testing.T) {
	ft := clocktest.NewFakeTime(time.Unix(0, 0))
	pool := NewWorkerPool(1)
	defer pool.Close()

	updates := make(chan Update, 64)
	isolated := New(RoleRest, 30*time.Second, Countdown,
		WithTimeSource(ft), WithInterval(time.Millisecond),
		WithTickSource(DefaultSource(pool, nil)),
		WithOnTick(func(u Update) {
			select {
			case updates <- u:
			default:
			}
		}))
	fallback := New(RoleRest, 30*time.Second, Countdown,
		WithTimeSource(ft), WithInterval(time.Millisecond),
		WithTickSource(Fallback(clocktest.Unavailable{}, IntervalSource{}, nil)))

	isolated.Start()
	fallback.Start()
	defer isolated.Reset()
	defer fallback.Reset()

	ft.Advance(4200 * time.Millisecond)
	timeout := time.After(2 * time.Second)
	for seen := false; !seen; {
		select {
		case u := <-updates:
			seen = u.Value == 25800*time.Millisecond
		case <-timeout:
			t.Fatal("isolated worker never reported the advanced value")
		}
	}
	if a, b := isolated.Value(), fallback.Value(); a != b {
		t.Fatalf("isolated = %v, fallback = %v", a, b)
	}
}

// TestDefaultSourceWithoutPool verifies a nil pool selects in-process ticks.
func TestDefaultSourceWithoutPool(t *testing.T) {
	if _, ok := DefaultSource(nil, nil).(IntervalSource); !ok {
		t.Fatal("DefaultSource(nil) is not IntervalSource")
	}
}
