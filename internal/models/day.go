package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkoutType selects how a day is structured.
type WorkoutType string

const (
	// Standard days are sets x reps per exercise, one exercise at a time.
	Standard WorkoutType = "standard"
	// Circuit days cycle through every exercise once per round.
	Circuit WorkoutType = "circuit"
)

// ExerciseType selects the volume formula for an exercise.
type ExerciseType string

const (
	Weighted       ExerciseType = "weighted"
	Bodyweight     ExerciseType = "bodyweight"
	BodyweightPlus ExerciseType = "bodyweight_plus"
	Timed          ExerciseType = "timed"
)

// ErrNoExercises is returned when a day defines no exercises.
var ErrNoExercises = errors.New("day has no exercises")

// Exercise is one planned exercise on a workout day.
type Exercise struct {
	Name        string       `json:"name" yaml:"name"`
	Type        ExerciseType `json:"type" yaml:"type"`
	Sets        int          `json:"sets" yaml:"sets"`
	Reps        int          `json:"reps" yaml:"reps"`
	Weight      float64      `json:"weight" yaml:"weight"`
	RestSeconds int          `json:"rest_seconds,omitempty" yaml:"rest_seconds,omitempty"`
}

// CircuitConfig holds the round settings of a circuit day.
type CircuitConfig struct {
	TargetRounds int `json:"target_rounds" yaml:"target_rounds"`
	RestSeconds  int `json:"rest_seconds,omitempty" yaml:"rest_seconds,omitempty"`
}

// Day is the canonical workout-day definition. Legacy field names are
// translated once when a Day is decoded.
type Day struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	WorkoutType WorkoutType    `json:"workout_type" yaml:"workout_type"`
	Exercises   []Exercise     `json:"exercises" yaml:"exercises"`
	Circuit     *CircuitConfig `json:"circuit,omitempty" yaml:"circuit,omitempty"`
}

// TargetRounds returns the configured round count, or 0 for non-circuit days.
func (d *Day) TargetRounds() int {
	if d.Circuit == nil {
		return 0
	}
	return d.Circuit.TargetRounds
}

// Validate checks that the day can drive a session.
func (d *Day) Validate() error {
	if len(d.Exercises) == 0 {
		return ErrNoExercises
	}
	for i, ex := range d.Exercises {
		if ex.Sets < 0 {
			return fmt.Errorf("exercise %d (%s): sets must not be negative", i, ex.Name)
		}
		switch ex.Type {
		case Weighted, Bodyweight, BodyweightPlus, Timed:
		default:
			return fmt.Errorf("exercise %d (%s): unknown type %q", i, ex.Name, ex.Type)
		}
	}
	switch d.WorkoutType {
	case Standard:
	case Circuit:
		if d.TargetRounds() <= 0 {
			return fmt.Errorf("circuit day %q: target_rounds must be positive", d.Name)
		}
	default:
		return fmt.Errorf("unknown workout type %q", d.WorkoutType)
	}
	return nil
}

// ParseDay decodes a YAML or JSON day definition and validates it.
func ParseDay(data []byte) (*Day, error) {
	var d Day
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing day: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validating day: %w", err)
	}
	return &d, nil
}

// LoadDay reads a day definition from a YAML or JSON file.
func LoadDay(path string) (*Day, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading day file: %w", err)
	}
	return ParseDay(data)
}

// rawExercise accepts both canonical and legacy exercise field names.
type rawExercise struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	ExerciseType string   `json:"exercise_type" yaml:"exercise_type"`
	Sets         *int     `json:"sets" yaml:"sets"`
	TargetSets   *int     `json:"target_sets" yaml:"target_sets"`
	TargetSetsC  *int     `json:"targetSets" yaml:"targetSets"`
	Reps         *int     `json:"reps" yaml:"reps"`
	TargetReps   *int     `json:"targetReps" yaml:"targetReps"`
	TargetRepsS  *int     `json:"target_reps" yaml:"target_reps"`
	Weight       *float64 `json:"weight" yaml:"weight"`
	TargetWeight *float64 `json:"targetWeight" yaml:"targetWeight"`
	RestSeconds  *int     `json:"rest_seconds" yaml:"rest_seconds"`
	RestSecondsC *int     `json:"restSeconds" yaml:"restSeconds"`
}

type rawCircuit struct {
	TargetRounds  *int `json:"target_rounds" yaml:"target_rounds"`
	TargetRoundsC *int `json:"targetRounds" yaml:"targetRounds"`
	RestSeconds   *int `json:"rest_seconds" yaml:"rest_seconds"`
	RestSecondsC  *int `json:"restSeconds" yaml:"restSeconds"`
}

// rawDay accepts both canonical and legacy day field names.
type rawDay struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	WorkoutType   string        `json:"workout_type" yaml:"workout_type"`
	WorkoutTypeC  string        `json:"workoutType" yaml:"workoutType"`
	DayType       string        `json:"day_type" yaml:"day_type"`
	Type          string        `json:"type" yaml:"type"`
	Exercises     []rawExercise `json:"exercises" yaml:"exercises"`
	Circuit       *rawCircuit   `json:"circuit" yaml:"circuit"`
	CircuitConfig *rawCircuit   `json:"circuitConfig" yaml:"circuitConfig"`
}

// UnmarshalJSON decodes a day, translating legacy field names.
func (d *Day) UnmarshalJSON(data []byte) error {
	var raw rawDay
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = raw.canonical()
	return nil
}

// UnmarshalYAML decodes a day, translating legacy field names.
func (d *Day) UnmarshalYAML(value *yaml.Node) error {
	var raw rawDay
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*d = raw.canonical()
	return nil
}

func (r rawDay) canonical() Day {
	d := Day{
		ID:          r.ID,
		Name:        r.Name,
		WorkoutType: WorkoutType(firstString(r.WorkoutType, r.WorkoutTypeC, r.DayType, r.Type)),
	}
	if d.WorkoutType == "" {
		d.WorkoutType = Standard
	}
	for _, ex := range r.Exercises {
		d.Exercises = append(d.Exercises, ex.canonical())
	}

	c := r.Circuit
	if c == nil {
		c = r.CircuitConfig
	}
	if c != nil {
		d.Circuit = &CircuitConfig{
			TargetRounds: firstInt(c.TargetRounds, c.TargetRoundsC),
			RestSeconds:  firstInt(c.RestSeconds, c.RestSecondsC),
		}
	}
	return d
}

func (r rawExercise) canonical() Exercise {
	ex := Exercise{
		Name:        r.Name,
		Type:        ExerciseType(firstString(r.Type, r.ExerciseType)),
		Sets:        firstInt(r.Sets, r.TargetSets, r.TargetSetsC),
		Reps:        firstInt(r.Reps, r.TargetReps, r.TargetRepsS),
		RestSeconds: firstInt(r.RestSeconds, r.RestSecondsC),
	}
	if ex.Type == "" {
		ex.Type = Weighted
	}
	switch {
	case r.Weight != nil:
		ex.Weight = *r.Weight
	case r.TargetWeight != nil:
		ex.Weight = *r.TargetWeight
	}
	return ex
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
