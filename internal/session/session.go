// Package session runs one workout session: it wires the timer coordinator
// and the progression engine onto a shared event bus, snapshots their state
// into a Record on every transition, and pushes finished sessions upstream.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/events"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/progression"
	"github.com/claude/repclock/internal/timer"
)

// Config holds the collaborators and settings of a Session.
type Config struct {
	Durations      timer.Durations
	TimeSource     clock.TimeSource
	TickSource     clock.TickSource
	TickInterval   time.Duration
	Store          Store
	Pusher         Pusher
	PushTimeout    time.Duration
	Bodyweight     float64
	LoadPercentage float64
	Logger         *slog.Logger
}

// Session drives a live workout.
type Session struct {
	mu       sync.Mutex
	rec      Record
	listener events.Listener

	coord *timer.Coordinator
	prog  *progression.Engine
	bus   *events.Bus
	now   clock.TimeSource

	store       Store
	pusher      Pusher
	pushTimeout time.Duration
	pushes      sync.WaitGroup

	saveMu    sync.Mutex
	saveSeq   atomic.Uint64
	savedSeq  uint64
	closeOnce sync.Once

	log *slog.Logger
}

// New creates a session for day. A missing or invalid day is a
// configuration error.
func New(day *models.Day, cfg Config) (*Session, error) {
	if day == nil {
		return nil, progression.ErrMissingDay
	}
	if err := day.Validate(); err != nil {
		return nil, fmt.Errorf("validating day: %w", err)
	}
	if cfg.Durations == (timer.Durations{}) {
		cfg.Durations = timer.DefaultDurations()
	}
	s, err := build(day, cfg)
	if err != nil {
		return nil, err
	}
	now := s.now.Now()
	s.rec = Record{
		ID:             uuid.New(),
		DayID:          day.ID,
		DayName:        day.Name,
		WorkoutType:    day.WorkoutType,
		Status:         models.StatusInProgress,
		StartedAt:      now,
		UpdatedAt:      now,
		Day:            *day,
		Durations:      cfg.Durations,
		Bodyweight:     cfg.Bodyweight,
		LoadPercentage: cfg.LoadPercentage,
	}
	return s, nil
}

// Restore rebuilds a session from a saved record. A clock that was running
// when the record was saved resumes from its saved value.
func Restore(rec *Record, cfg Config) (*Session, error) {
	if rec == nil {
		return nil, ErrNotFound
	}
	day := rec.Day
	if err := day.Validate(); err != nil {
		return nil, fmt.Errorf("validating saved day: %w", err)
	}
	if rec.Durations != (timer.Durations{}) {
		cfg.Durations = rec.Durations
	}
	s, err := build(&day, cfg)
	if err != nil {
		return nil, err
	}
	s.rec = *rec
	s.rec.Day = day
	s.rec.Durations = cfg.Durations
	s.prog.Restore(rec.Progress, rec.Sets, rec.Rounds)
	s.coord.SetState(rec.Timer)
	s.log.Info("session restored", "session_id", rec.ID, "phase", rec.Timer.Phase)
	return s, nil
}

// Load restores the current session from store.
func Load(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, ErrNotFound
	}
	rec, err := LoadRecord(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	return Restore(rec, cfg)
}

func build(day *models.Day, cfg Config) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	now := cfg.TimeSource
	if now == nil {
		now = clock.RealTime{}
	}
	ticks := cfg.TickSource
	if ticks == nil {
		ticks = clock.IntervalSource{}
	}
	pushTimeout := cfg.PushTimeout
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}

	bus := events.NewBus(now.Now)
	coord := timer.New(cfg.Durations,
		timer.WithTimeSource(now),
		timer.WithTickSource(ticks),
		timer.WithInterval(cfg.TickInterval),
		timer.WithBus(bus),
		timer.WithLogger(log),
	)
	prog, err := progression.New(day, coord, bus,
		progression.WithNow(now.Now),
		progression.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("building progression: %w", err)
	}

	s := &Session{
		coord:       coord,
		prog:        prog,
		bus:         bus,
		now:         now,
		store:       cfg.Store,
		pusher:      cfg.Pusher,
		pushTimeout: pushTimeout,
		log:         log,
	}
	bus.Subscribe(s.handle)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.ID
}

// Subscribe registers a listener that receives every event after the
// session has handled it.
func (s *Session) Subscribe(l events.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start begins the preparation countdown.
func (s *Session) Start() {
	s.coord.StartWorkout()
}

// FinishSet records the current standard set and starts rest.
func (s *Session) FinishSet(actualReps int, actualWeight float64, notes string) {
	if !s.coord.Active() {
		return
	}
	s.prog.FinishSet(actualReps, actualWeight, notes)
}

// SkipExercise moves to the next exercise.
func (s *Session) SkipExercise() {
	if !s.coord.Active() {
		return
	}
	s.prog.SkipExercise()
}

// FinishRound records the current circuit round and starts rest.
func (s *Session) FinishRound(actuals []models.RoundActual) {
	if !s.coord.Active() {
		return
	}
	s.prog.FinishRound(actuals)
}

// SkipRound moves to the next round.
func (s *Session) SkipRound() {
	if !s.coord.Active() {
		return
	}
	s.prog.SkipRound()
}

// StartRest starts a rest outside the set flow. A zero override uses the
// default rest.
func (s *Session) StartRest(override time.Duration) {
	s.coord.StartRest(override)
}

// Pause pauses the session.
func (s *Session) Pause() {
	s.coord.PauseWorkout()
}

// Resume resumes the session in the phase it was paused in.
func (s *Session) Resume() {
	s.coord.ResumeWorkout()
}

// TogglePause pauses a running session or resumes a paused one.
func (s *Session) TogglePause() {
	if s.coord.Paused() {
		s.coord.ResumeWorkout()
		return
	}
	s.coord.PauseWorkout()
}

// Stop abandons the session.
func (s *Session) Stop() {
	s.coord.StopWorkout()
}

// Record returns a snapshot of the session record with live timer state.
func (s *Session) Record() *Record {
	st := s.coord.State()
	progress := s.prog.State()
	sets := s.prog.Sets()
	rounds := s.prog.Rounds()

	s.mu.Lock()
	rec := s.rec
	s.mu.Unlock()

	rec.Timer = st
	rec.Progress = progress
	rec.Sets = sets
	rec.Rounds = rounds
	rec.UpdatedAt = s.now.Now()
	rec.Volume = rec.ComputeVolume()
	if st.Active {
		rec.ActiveMs = activeTime(st.Total).Milliseconds()
	}
	return &rec
}

// Save writes the session record and the current-session pointer. Saving
// never changes session state; concurrent saves never let an older snapshot
// overwrite a newer one.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	seq := s.saveSeq.Add(1)
	rec := s.Record()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if seq < s.savedSeq {
		return nil
	}
	if err := s.store.SetItem(ctx, Key(rec.ID), data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if err := s.store.SetItem(ctx, CurrentKey, []byte(rec.ID.String())); err != nil {
		return fmt.Errorf("saving current session pointer: %w", err)
	}
	s.savedSeq = seq
	return nil
}

// Background snapshots the session and stops its clocks, for when the
// workout screen goes away. Resume later with Load.
func (s *Session) Background(ctx context.Context) error {
	err := s.Save(ctx)
	s.Close()
	return err
}

// Close stops all tick schedules and waits for pending pushes.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.coord.Close()
	})
	s.pushes.Wait()
}

func (s *Session) handle(ev events.Event) {
	switch ev.Type {
	case events.RestComplete:
		s.prog.RestComplete()
		s.persist()
	case events.WorkoutComplete:
		s.complete(ev)
	case events.WorkoutStopped:
		s.mu.Lock()
		abandoned := s.rec.Status == models.StatusInProgress
		if abandoned {
			s.rec.Status = models.StatusAbandoned
		}
		s.mu.Unlock()
		s.persist()
		if abandoned {
			s.log.Info("session abandoned", "session_id", s.ID())
			s.push()
		}
	case events.TimerUpdate, events.TimerComplete:
	default:
		s.persist()
	}

	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l(ev)
	}
}

func (s *Session) complete(ev events.Event) {
	total := s.coord.Clock(clock.RoleTotal)

	s.mu.Lock()
	if s.rec.Status != models.StatusInProgress {
		s.mu.Unlock()
		return
	}
	now := s.now.Now()
	s.rec.Status = models.StatusCompleted
	s.rec.CompletedAt = &now
	s.rec.ActiveMs = activeTime(total).Milliseconds()
	s.mu.Unlock()

	if ev.Data["reason"] == "time_limit" {
		s.prog.Complete()
	} else {
		s.coord.StopWorkout()
	}
	s.log.Info("session completed", "session_id", s.ID(), "reason", ev.Data["reason"])
	s.persist()
	s.push()
}

// persist saves and logs failures; the session continues in memory.
func (s *Session) persist() {
	if err := s.Save(context.Background()); err != nil {
		s.log.Warn("session save failed", "error", err)
	}
}

// push sends the record upstream once, in the background.
func (s *Session) push() {
	if s.pusher == nil {
		return
	}
	rec := s.Record()
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
		defer cancel()
		if err := s.pusher.PushSession(ctx, rec); err != nil {
			s.log.Warn("session push failed", "session_id", rec.ID, "error", err)
			return
		}
		s.log.Info("session pushed", "session_id", rec.ID)
	}()
}
