package models

import (
	"encoding/json"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestComputeVolume verifies the per-type volume formulas.
func TestComputeVolume(t *testing.T) {
	sets := []CompletedSet{
		{ActualReps: 10, ActualWeight: 20},
		{ActualReps: 8, ActualWeight: 25},
		{ActualReps: 0, ActualWeight: 100},
	}
	tests := []struct {
		typ  ExerciseType
		want float64
	}{
		{Weighted, 10*20 + 8*25},
		{Bodyweight, 18 * 80 * 0.65},
		{BodyweightPlus, 10*(80*0.65+20) + 8*(80*0.65+25)},
		{Timed, 0},
	}
	for _, tt := range tests {
		if got := ComputeVolume(tt.typ, sets, 80, 65); !approx(got, tt.want) {
			t.Errorf("ComputeVolume(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

// TestSessionVolumeGroupsByExercise verifies aggregation keeps first-seen order
// and applies each exercise's own formula.
func TestSessionVolumeGroupsByExercise(t *testing.T) {
	sets := []CompletedSet{
		{ExerciseIndex: 1, ExerciseName: "Pull-up", ExerciseType: Bodyweight, ActualReps: 5},
		{ExerciseIndex: 0, ExerciseName: "Squat", ExerciseType: Weighted, ActualReps: 5, ActualWeight: 100},
		{ExerciseIndex: 1, ExerciseName: "Pull-up", ExerciseType: Bodyweight, ActualReps: 4},
	}
	got := SessionVolume(sets, 70, 100)
	if len(got) != 2 {
		t.Fatalf("groups = %d, want 2", len(got))
	}
	if got[0].ExerciseName != "Pull-up" || got[0].Sets != 2 || got[0].Reps != 9 || !approx(got[0].Volume, 9*70) {
		t.Errorf("pull-up = %+v", got[0])
	}
	if got[1].ExerciseName != "Squat" || !approx(got[1].Volume, 500) {
		t.Errorf("squat = %+v", got[1])
	}
	if total := TotalVolume(sets, 70, 100); !approx(total, 9*70+500) {
		t.Errorf("total = %v, want %v", total, 9*70+500)
	}
}

// TestUploadRowRecomputesVolume verifies the server-side row ignores the
// client-reported volume and counts rounds as sets.
func TestUploadRowRecomputesVolume(t *testing.T) {
	raw := `{
		"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		"day_name": "Conditioning",
		"workout_type": "circuit",
		"status": "completed",
		"volume": 999999,
		"bodyweight_kg": 80,
		"load_percentage": 50,
		"timer": {"phase": "none"},
		"rounds": [
			{"round_index": 0, "exercise_index": 0, "exercise_name": "Burpees", "exercise_type": "bodyweight", "actual_reps": 10},
			{"round_index": 0, "exercise_index": 1, "exercise_name": "Swing", "exercise_type": "weighted", "actual_reps": 15, "actual_weight": 24}
		]
	}`
	var u SessionUpload
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	row := u.Row()
	want := 10*80*0.5 + 15*24.0
	if !approx(row.Volume, want) {
		t.Errorf("volume = %v, want %v", row.Volume, want)
	}
	if row.RoundCount != 2 || row.SetCount != 0 {
		t.Errorf("counts = %d sets / %d rounds", row.SetCount, row.RoundCount)
	}
	if row.Status != StatusCompleted {
		t.Errorf("status = %q", row.Status)
	}
}
