package models

import "time"

// Progress is the position of a session within its day.
// SetIndex is used by standard days, RoundIndex by circuit days.
type Progress struct {
	ExerciseIndex int  `json:"exercise_index"`
	SetIndex      int  `json:"set_index"`
	RoundIndex    int  `json:"round_index"`
	Completed     bool `json:"completed"`
	Resting       bool `json:"resting"`
}

// CompletedSet is one finished set. It is never modified after it is appended.
type CompletedSet struct {
	ExerciseIndex int          `json:"exercise_index"`
	ExerciseName  string       `json:"exercise_name"`
	ExerciseType  ExerciseType `json:"exercise_type"`
	SetIndex      int          `json:"set_index"`
	PlannedReps   int          `json:"planned_reps"`
	PlannedWeight float64      `json:"planned_weight"`
	ActualReps    int          `json:"actual_reps"`
	ActualWeight  float64      `json:"actual_weight"`
	CompletedAt   time.Time    `json:"completed_at"`
	Notes         string       `json:"notes,omitempty"`
}

// RoundActual is what was performed for one exercise in a circuit round.
type RoundActual struct {
	ExerciseIndex int     `json:"exercise_index"`
	Reps          int     `json:"reps"`
	Weight        float64 `json:"weight"`
	Notes         string  `json:"notes,omitempty"`
}

// CompletedRound is one exercise's entry in a finished circuit round.
// It is never modified after it is appended.
type CompletedRound struct {
	RoundIndex    int          `json:"round_index"`
	ExerciseIndex int          `json:"exercise_index"`
	ExerciseName  string       `json:"exercise_name"`
	ExerciseType  ExerciseType `json:"exercise_type"`
	PlannedReps   int          `json:"planned_reps"`
	PlannedWeight float64      `json:"planned_weight"`
	ActualReps    int          `json:"actual_reps"`
	ActualWeight  float64      `json:"actual_weight"`
	CompletedAt   time.Time    `json:"completed_at"`
	Notes         string       `json:"notes,omitempty"`
}

// AsSet views a round entry as a set for volume aggregation.
func (r CompletedRound) AsSet() CompletedSet {
	return CompletedSet{
		ExerciseIndex: r.ExerciseIndex,
		ExerciseName:  r.ExerciseName,
		ExerciseType:  r.ExerciseType,
		SetIndex:      r.RoundIndex,
		PlannedReps:   r.PlannedReps,
		PlannedWeight: r.PlannedWeight,
		ActualReps:    r.ActualReps,
		ActualWeight:  r.ActualWeight,
		CompletedAt:   r.CompletedAt,
		Notes:         r.Notes,
	}
}
