package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session record.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// SessionUpload is the part of a pushed session record the server keeps.
// Field names match the client's session record, so the full record decodes
// into it and the timer and progression snapshots are ignored.
type SessionUpload struct {
	ID             uuid.UUID        `json:"id"`
	DayID          string           `json:"day_id"`
	DayName        string           `json:"day_name"`
	WorkoutType    WorkoutType      `json:"workout_type"`
	Status         SessionStatus    `json:"status"`
	StartedAt      time.Time        `json:"started_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Bodyweight     float64          `json:"bodyweight_kg"`
	LoadPercentage float64          `json:"load_percentage"`
	Volume         float64          `json:"volume"`
	Sets           []CompletedSet   `json:"sets"`
	Rounds         []CompletedRound `json:"rounds"`
}

// SessionRow is a row of the sessions table.
type SessionRow struct {
	ID             uuid.UUID     `json:"id"`
	DayID          string        `json:"day_id"`
	DayName        string        `json:"day_name"`
	WorkoutType    WorkoutType   `json:"workout_type"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Bodyweight     float64       `json:"bodyweight_kg"`
	LoadPercentage float64       `json:"load_percentage"`
	Volume         float64       `json:"volume"`
	SetCount       int           `json:"set_count"`
	RoundCount     int           `json:"round_count"`
}

// SessionDetail is a session with its completed sets and rounds.
type SessionDetail struct {
	SessionRow
	Sets   []CompletedSet   `json:"sets"`
	Rounds []CompletedRound `json:"rounds"`
}

// TrainingVolumeRow is the per-day, per-exercise volume aggregate.
type TrainingVolumeRow struct {
	Date         time.Time `json:"date"`
	ExerciseName string    `json:"exercise_name"`
	Sets         int       `json:"sets"`
	Reps         int       `json:"reps"`
	Volume       float64   `json:"volume"`
}

// Row converts an upload into its sessions row. Volume is recomputed from
// the sets and rounds rather than trusted from the client.
func (u *SessionUpload) Row() SessionRow {
	return SessionRow{
		ID:             u.ID,
		DayID:          u.DayID,
		DayName:        u.DayName,
		WorkoutType:    u.WorkoutType,
		Status:         u.Status,
		StartedAt:      u.StartedAt,
		UpdatedAt:      u.UpdatedAt,
		CompletedAt:    u.CompletedAt,
		Bodyweight:     u.Bodyweight,
		LoadPercentage: u.LoadPercentage,
		Volume:         TotalVolume(u.AllSets(), u.Bodyweight, u.LoadPercentage),
		SetCount:       len(u.Sets),
		RoundCount:     len(u.Rounds),
	}
}

// AllSets returns sets followed by rounds viewed as sets.
func (u *SessionUpload) AllSets() []CompletedSet {
	all := make([]CompletedSet, 0, len(u.Sets)+len(u.Rounds))
	all = append(all, u.Sets...)
	for _, r := range u.Rounds {
		all = append(all, r.AsSet())
	}
	return all
}
