package clock

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrWorkerUnavailable is returned when no isolated tick worker can be started.
var ErrWorkerUnavailable = errors.New("clock: tick worker unavailable")

// TimeSource provides wall-clock time. Tests substitute a fake.
type TimeSource interface {
	Now() time.Time
}

// RealTime provides actual system time.
type RealTime struct{}

// Now returns the current system time.
func (RealTime) Now() time.Time {
	return time.Now()
}

// TickSource schedules fn every interval until stop is called.
// fn may call stop itself.
type TickSource interface {
	Start(interval time.Duration, fn func()) (stop func(), err error)
}

// IntervalSource ticks in-process with a self-rescheduling timer callback.
type IntervalSource struct{}

// Start schedules fn. It never fails.
func (IntervalSource) Start(interval time.Duration, fn func()) (func(), error) {
	it := &intervalTicker{interval: interval, fn: fn}
	it.mu.Lock()
	it.timer = time.AfterFunc(interval, it.fire)
	it.mu.Unlock()
	return it.stop, nil
}

type intervalTicker struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	fn       func()
	stopped  bool
}

func (it *intervalTicker) fire() {
	it.mu.Lock()
	if it.stopped {
		it.mu.Unlock()
		return
	}
	it.mu.Unlock()

	it.fn()

	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.stopped {
		it.timer.Reset(it.interval)
	}
}

func (it *intervalTicker) stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.stopped = true
	it.timer.Stop()
}

// WorkerPool runs each tick schedule on its own goroutine pair: a producer
// that owns a time.Ticker and posts tick messages, and a pump that delivers
// them. The producer never blocks on the consumer; ticks that arrive while
// the previous one is still being delivered are dropped, which is safe
// because every tick recomputes the value from the time source.
type WorkerPool struct {
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	workers map[*worker]struct{}
}

// NewWorkerPool creates a pool that runs at most size concurrent schedules.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		sem:     semaphore.NewWeighted(int64(size)),
		workers: make(map[*worker]struct{}),
	}
}

// Start launches an isolated tick worker. It returns ErrWorkerUnavailable
// when the pool is full or closed.
func (p *WorkerPool) Start(interval time.Duration, fn func()) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrWorkerUnavailable
	}
	if !p.sem.TryAcquire(1) {
		return nil, ErrWorkerUnavailable
	}

	w := &worker{
		ticks: make(chan time.Time, 1),
		done:  make(chan struct{}),
	}
	p.workers[w] = struct{}{}
	p.wg.Add(2)
	go w.produce(&p.wg, interval)
	go w.pump(&p.wg, fn)

	return func() { p.release(w) }, nil
}

// Close stops every worker and waits for their goroutines to exit.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	p.closed = true
	workers := make([]*worker, 0, len(p.workers))
	for w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		p.release(w)
	}
	p.wg.Wait()
}

// Active returns the number of running workers.
func (p *WorkerPool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *WorkerPool) release(w *worker) {
	w.once.Do(func() {
		close(w.done)
		p.mu.Lock()
		delete(p.workers, w)
		p.mu.Unlock()
		p.sem.Release(1)
	})
}

type worker struct {
	ticks chan time.Time
	done  chan struct{}
	once  sync.Once
}

func (w *worker) produce(wg *sync.WaitGroup, interval time.Duration) {
	defer wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-t.C:
			select {
			case w.ticks <- now:
			default:
			}
		}
	}
}

func (w *worker) pump(wg *sync.WaitGroup, fn func()) {
	defer wg.Done()
	for {
		select {
		case <-w.done:
			return
		case <-w.ticks:
			select {
			case <-w.done:
				return
			default:
			}
			fn()
		}
	}
}

// Fallback returns a TickSource that uses primary and switches to
// secondary for any schedule the primary cannot start.
func Fallback(primary, secondary TickSource, log *slog.Logger) TickSource {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &fallbackSource{primary: primary, secondary: secondary, log: log}
}

type fallbackSource struct {
	primary   TickSource
	secondary TickSource
	log       *slog.Logger
}

func (f *fallbackSource) Start(interval time.Duration, fn func()) (func(), error) {
	stop, err := f.primary.Start(interval, fn)
	if err == nil {
		return stop, nil
	}
	f.log.Warn("isolated tick worker unavailable, falling back to in-process ticks", "error", err)
	return f.secondary.Start(interval, fn)
}

// DefaultSource returns the isolated worker strategy backed by pool with an
// in-process fallback.
func DefaultSource(pool *WorkerPool, log *slog.Logger) TickSource {
	if pool == nil {
		return IntervalSource{}
	}
	return Fallback(pool, IntervalSource{}, log)
}
