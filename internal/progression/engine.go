// Package progression tracks a session's position within its workout day and
// advances it as sets and rounds are finished.
package progression

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repclock/internal/events"
	"github.com/claude/repclock/internal/models"
)

var (
	// ErrMissingDay is returned when no day definition is supplied.
	ErrMissingDay = errors.New("progression: missing day definition")
	// ErrNoExercises is returned when the day has nothing to perform.
	ErrNoExercises = errors.New("progression: day has no exercises")
	// ErrNoRounds is returned when a circuit day has no target rounds.
	ErrNoRounds = errors.New("progression: circuit has no target rounds")
)

// RestStarter starts a rest period. A zero override uses the default rest.
type RestStarter interface {
	StartRest(override time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow sets the timestamp source for completed records.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine is the progression state machine for one session. Standard days
// advance through (exercise, set); circuit days advance through rounds.
//
// Indices always stay within the day's bounds. Finishing or skipping the
// last set or round marks the session completed and emits workoutComplete
// instead of moving past the end.
type Engine struct {
	mu       sync.Mutex
	day      *models.Day
	kind     models.WorkoutType
	progress models.Progress
	sets     []models.CompletedSet
	rounds   []models.CompletedRound

	rest RestStarter
	bus  *events.Bus
	now  func() time.Time
	log  *slog.Logger
}

// New builds the engine matching the day's workout type.
func New(day *models.Day, rest RestStarter, bus *events.Bus, opts ...Option) (*Engine, error) {
	if day == nil {
		return nil, ErrMissingDay
	}
	if day.WorkoutType == models.Circuit {
		return NewCircuit(day, rest, bus, opts...)
	}
	return NewStandard(day, rest, bus, opts...)
}

// NewStandard builds a sets x reps engine positioned at the first exercise
// that has planned sets.
func NewStandard(day *models.Day, rest RestStarter, bus *events.Bus, opts ...Option) (*Engine, error) {
	if day == nil {
		return nil, ErrMissingDay
	}
	if len(day.Exercises) == 0 {
		return nil, ErrNoExercises
	}
	e := newEngine(day, models.Standard, rest, bus, opts)
	first := e.nextExercise(0)
	if first >= len(day.Exercises) {
		return nil, fmt.Errorf("no exercise in %q has planned sets: %w", day.Name, ErrNoExercises)
	}
	e.progress.ExerciseIndex = first
	return e, nil
}

// NewCircuit builds a rounds engine.
func NewCircuit(day *models.Day, rest RestStarter, bus *events.Bus, opts ...Option) (*Engine, error) {
	if day == nil {
		return nil, ErrMissingDay
	}
	if len(day.Exercises) == 0 {
		return nil, ErrNoExercises
	}
	if day.TargetRounds() <= 0 {
		return nil, fmt.Errorf("circuit %q: %w", day.Name, ErrNoRounds)
	}
	return newEngine(day, models.Circuit, rest, bus, opts), nil
}

func newEngine(day *models.Day, kind models.WorkoutType, rest RestStarter, bus *events.Bus, opts []Option) *Engine {
	e := &Engine{
		day:  day,
		kind: kind,
		rest: rest,
		bus:  bus,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = events.NewBus(e.now)
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	return e
}

// Kind returns the workout type the engine runs.
func (e *Engine) Kind() models.WorkoutType {
	return e.kind
}

// Day returns the day definition.
func (e *Engine) Day() *models.Day {
	return e.day
}

// FinishSet records the current set and starts rest. On the final set of the
// day it completes the workout instead.
func (e *Engine) FinishSet(actualReps int, actualWeight float64, notes string) {
	defer e.bus.Flush()
	e.mu.Lock()

	if e.kind != models.Standard || e.progress.Completed {
		e.mu.Unlock()
		return
	}
	p := &e.progress
	ex := e.day.Exercises[p.ExerciseIndex]
	e.sets = append(e.sets, models.CompletedSet{
		ExerciseIndex: p.ExerciseIndex,
		ExerciseName:  ex.Name,
		ExerciseType:  ex.Type,
		SetIndex:      p.SetIndex,
		PlannedReps:   ex.Reps,
		PlannedWeight: ex.Weight,
		ActualReps:    actualReps,
		ActualWeight:  actualWeight,
		CompletedAt:   e.now(),
		Notes:         notes,
	})
	e.bus.Emit(events.SetFinished, map[string]any{
		"exercise_index": p.ExerciseIndex,
		"exercise_name":  ex.Name,
		"set_index":      p.SetIndex,
		"actual_reps":    actualReps,
		"actual_weight":  actualWeight,
	})

	if p.SetIndex+1 < ex.Sets {
		p.SetIndex++
	} else if !e.advanceExerciseLocked() {
		e.mu.Unlock()
		return
	}
	p.Resting = true
	override := seconds(ex.RestSeconds)
	e.mu.Unlock()

	// Rest is started outside the lock; its events queue behind ours.
	e.startRest(override)
}

// SkipExercise moves to the next exercise without recording a set or resting.
func (e *Engine) SkipExercise() {
	defer e.bus.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.kind != models.Standard || e.progress.Completed {
		return
	}
	e.advanceExerciseLocked()
}

// advanceExerciseLocked moves to the next exercise with sets, or completes
// the workout. It reports whether the workout continues.
func (e *Engine) advanceExerciseLocked() bool {
	next := e.nextExercise(e.progress.ExerciseIndex + 1)
	if next >= len(e.day.Exercises) {
		e.completeLocked()
		return false
	}
	e.progress.ExerciseIndex = next
	e.progress.SetIndex = 0
	e.bus.Emit(events.ExerciseChanged, map[string]any{
		"exercise_index": next,
		"exercise_name":  e.day.Exercises[next].Name,
	})
	return true
}

// nextExercise returns the first index at or after from whose exercise has
// planned sets, or len(exercises).
func (e *Engine) nextExercise(from int) int {
	for i := from; i < len(e.day.Exercises); i++ {
		if e.day.Exercises[i].Sets > 0 {
			return i
		}
	}
	return len(e.day.Exercises)
}

// FinishRound records one entry per exercise with positive reps and starts
// rest. Entries with no reps are dropped but do not block the round.
func (e *Engine) FinishRound(actuals []models.RoundActual) {
	defer e.bus.Flush()
	e.mu.Lock()

	if e.kind != models.Circuit || e.progress.Completed {
		e.mu.Unlock()
		return
	}
	round := e.progress.RoundIndex
	recorded := 0
	at := e.now()
	for _, a := range actuals {
		if a.Reps <= 0 || a.ExerciseIndex < 0 || a.ExerciseIndex >= len(e.day.Exercises) {
			continue
		}
		ex := e.day.Exercises[a.ExerciseIndex]
		e.rounds = append(e.rounds, models.CompletedRound{
			RoundIndex:    round,
			ExerciseIndex: a.ExerciseIndex,
			ExerciseName:  ex.Name,
			ExerciseType:  ex.Type,
			PlannedReps:   ex.Reps,
			PlannedWeight: ex.Weight,
			ActualReps:    a.Reps,
			ActualWeight:  a.Weight,
			CompletedAt:   at,
			Notes:         a.Notes,
		})
		recorded++
	}
	e.bus.Emit(events.RoundFinished, map[string]any{
		"round_index": round,
		"recorded":    recorded,
	})

	if !e.advanceRoundLocked() {
		e.mu.Unlock()
		return
	}
	e.progress.Resting = true
	var override time.Duration
	if e.day.Circuit != nil {
		override = seconds(e.day.Circuit.RestSeconds)
	}
	e.mu.Unlock()

	e.startRest(override)
}

// SkipRound moves to the next round without recording anything or resting.
func (e *Engine) SkipRound() {
	defer e.bus.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.kind != models.Circuit || e.progress.Completed {
		return
	}
	e.advanceRoundLocked()
}

func (e *Engine) advanceRoundLocked() bool {
	next := e.progress.RoundIndex + 1
	if next >= e.day.TargetRounds() {
		e.completeLocked()
		return false
	}
	e.progress.RoundIndex = next
	e.bus.Emit(events.RoundChanged, map[string]any{
		"round_index":   next,
		"target_rounds": e.day.TargetRounds(),
	})
	return true
}

func (e *Engine) completeLocked() {
	e.progress.Completed = true
	e.progress.Resting = false
	e.bus.Emit(events.WorkoutComplete, map[string]any{
		"reason": "progression_complete",
		"sets":   len(e.sets),
		"rounds": len(e.rounds),
	})
	e.log.Info("workout progression complete", "sets", len(e.sets), "rounds", len(e.rounds))
}

func (e *Engine) startRest(override time.Duration) {
	if e.rest != nil {
		e.rest.StartRest(override)
	}
}

// RestComplete clears the resting flag after the rest clock finishes.
func (e *Engine) RestComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Resting = false
}

// Complete marks the workout finished without emitting an event, for
// completions decided elsewhere such as the workout time limit.
func (e *Engine) Complete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Completed = true
	e.progress.Resting = false
}

// State returns the current progress.
func (e *Engine) State() models.Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Restore replaces progress and records, clamping indices into range.
func (e *Engine) Restore(p models.Progress, sets []models.CompletedSet, rounds []models.CompletedRound) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.day.Exercises)
	p.ExerciseIndex = clamp(p.ExerciseIndex, n)
	if e.kind == models.Standard {
		p.SetIndex = clamp(p.SetIndex, e.day.Exercises[p.ExerciseIndex].Sets)
	}
	p.RoundIndex = clamp(p.RoundIndex, e.day.TargetRounds())

	e.progress = p
	e.sets = append([]models.CompletedSet(nil), sets...)
	e.rounds = append([]models.CompletedRound(nil), rounds...)
}

// Sets returns a copy of the completed sets.
func (e *Engine) Sets() []models.CompletedSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CompletedSet(nil), e.sets...)
}

// Rounds returns a copy of the completed round entries.
func (e *Engine) Rounds() []models.CompletedRound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CompletedRound(nil), e.rounds...)
}

// CurrentExercise returns the exercise at the current index.
func (e *Engine) CurrentExercise() models.Exercise {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.day.Exercises[e.progress.ExerciseIndex]
}

func clamp(i, n int) int {
	if i < 0 || n <= 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
