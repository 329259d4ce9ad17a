package session

import (
	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/timer"
)

// View is everything a screen needs to render the session. It is computed
// fresh from engine state, so a UI holds no state of its own.
type View struct {
	ID            string
	DayName       string
	WorkoutType   models.WorkoutType
	Status        models.SessionStatus
	Phase         timer.Phase
	Active        bool
	Paused        bool
	Preparation   clock.State
	Total         clock.State
	Rest          clock.State
	Progress      models.Progress
	Exercise      models.Exercise
	Exercises     []models.Exercise
	ExerciseCount int
	TargetRounds  int
	Sets          []models.CompletedSet
	Rounds        []models.CompletedRound
	Volume        float64
}

// PhaseClock returns the clock that drives the current phase, or the
// workout clock when no phase is active.
func (v View) PhaseClock() clock.State {
	switch v.Phase {
	case timer.PhasePreparation:
		return v.Preparation
	case timer.PhaseRest:
		return v.Rest
	}
	return v.Total
}

// Running reports whether any clock is ticking.
func (v View) Running() bool {
	return v.Active && !v.Paused && v.PhaseClock().Running
}

// View builds the render view.
func (s *Session) View() View {
	rec := s.Record()
	day := rec.Day
	v := View{
		ID:            rec.ID.String(),
		DayName:       rec.DayName,
		WorkoutType:   rec.WorkoutType,
		Status:        rec.Status,
		Phase:         rec.Timer.Phase,
		Active:        rec.Timer.Active,
		Paused:        rec.Timer.Paused,
		Preparation:   rec.Timer.Preparation,
		Total:         rec.Timer.Total,
		Rest:          rec.Timer.Rest,
		Progress:      rec.Progress,
		Exercises:     day.Exercises,
		ExerciseCount: len(day.Exercises),
		TargetRounds:  day.TargetRounds(),
		Sets:          rec.Sets,
		Rounds:        rec.Rounds,
		Volume:        rec.Volume,
	}
	if i := rec.Progress.ExerciseIndex; i >= 0 && i < len(day.Exercises) {
		v.Exercise = day.Exercises[i]
	}
	return v
}
