package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repclock/internal/clock"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/timer"
)

// ErrNotFound is returned by a Store when a key has no value.
var ErrNotFound = errors.New("session: not found")

// CurrentKey points at the id of the most recently saved session.
const CurrentKey = "session:current"

// Key returns the store key of a session record.
func Key(id uuid.UUID) string {
	return "session:" + id.String()
}

// Store is a string-keyed persistence backend.
type Store interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
}

// Pusher sends a session record to a remote server.
type Pusher interface {
	PushSession(ctx context.Context, rec *Record) error
}

// Record is the persisted session entity. It embeds the serialized timer
// and progression state so a session can be resumed after a restart.
type Record struct {
	ID             uuid.UUID               `json:"id"`
	DayID          string                  `json:"day_id"`
	DayName        string                  `json:"day_name"`
	WorkoutType    models.WorkoutType      `json:"workout_type"`
	Status         models.SessionStatus    `json:"status"`
	StartedAt      time.Time               `json:"started_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	Day            models.Day              `json:"day"`
	Durations      timer.Durations         `json:"durations"`
	Timer          timer.State             `json:"timer"`
	Progress       models.Progress         `json:"progress"`
	Sets           []models.CompletedSet   `json:"sets"`
	Rounds         []models.CompletedRound `json:"rounds"`
	Bodyweight     float64                 `json:"bodyweight_kg"`
	LoadPercentage float64                 `json:"load_percentage"`
	Volume         float64                 `json:"volume"`
	ActiveMs       int64                   `json:"active_ms"`
}

// AllSets returns completed sets followed by round entries viewed as sets.
func (r *Record) AllSets() []models.CompletedSet {
	all := make([]models.CompletedSet, 0, len(r.Sets)+len(r.Rounds))
	all = append(all, r.Sets...)
	for _, rd := range r.Rounds {
		all = append(all, rd.AsSet())
	}
	return all
}

// ComputeVolume recomputes Volume from the completed sets and rounds.
func (r *Record) ComputeVolume() float64 {
	return models.TotalVolume(r.AllSets(), r.Bodyweight, r.LoadPercentage)
}

// activeTime returns how long the workout clock has run, which excludes
// preparation and rest.
func activeTime(total clock.State) time.Duration {
	if total.Mode == clock.CountUp {
		return total.Value()
	}
	return total.Duration() - total.Value()
}

// LoadRecord reads the current session record from store.
func LoadRecord(ctx context.Context, store Store) (*Record, error) {
	idBytes, err := store.GetItem(ctx, CurrentKey)
	if err != nil {
		return nil, fmt.Errorf("reading current session pointer: %w", err)
	}
	id, err := uuid.ParseBytes(idBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing current session id: %w", err)
	}
	return LoadRecordByID(ctx, store, id)
}

// LoadRecordByID reads one session record from store.
func LoadRecordByID(ctx context.Context, store Store, id uuid.UUID) (*Record, error) {
	data, err := store.GetItem(ctx, Key(id))
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &rec, nil
}
