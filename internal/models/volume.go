package models

// ComputeVolume returns the training volume of sets performed for one
// exercise type. Bodyweight movements count loadPercentage percent of the
// user's bodyweight per rep; timed movements have no volume.
func ComputeVolume(exerciseType ExerciseType, sets []CompletedSet, bodyweight, loadPercentage float64) float64 {
	var total float64
	for _, s := range sets {
		reps := float64(s.ActualReps)
		if reps <= 0 {
			continue
		}
		switch exerciseType {
		case Weighted:
			total += reps * s.ActualWeight
		case Bodyweight:
			total += reps * bodyweight * loadPercentage / 100
		case BodyweightPlus:
			total += reps * (bodyweight*loadPercentage/100 + s.ActualWeight)
		}
	}
	return total
}

// ExerciseVolume is the aggregate for one exercise within a session.
type ExerciseVolume struct {
	ExerciseIndex int          `json:"exercise_index"`
	ExerciseName  string       `json:"exercise_name"`
	ExerciseType  ExerciseType `json:"exercise_type"`
	Sets          int          `json:"sets"`
	Reps          int          `json:"reps"`
	Volume        float64      `json:"volume"`
}

// SessionVolume groups sets by exercise, in first-seen order, and computes
// each exercise's volume.
func SessionVolume(sets []CompletedSet, bodyweight, loadPercentage float64) []ExerciseVolume {
	var out []ExerciseVolume
	byIndex := make(map[int][]CompletedSet)
	for _, s := range sets {
		if _, ok := byIndex[s.ExerciseIndex]; !ok {
			out = append(out, ExerciseVolume{
				ExerciseIndex: s.ExerciseIndex,
				ExerciseName:  s.ExerciseName,
				ExerciseType:  s.ExerciseType,
			})
		}
		byIndex[s.ExerciseIndex] = append(byIndex[s.ExerciseIndex], s)
	}
	for i := range out {
		group := byIndex[out[i].ExerciseIndex]
		out[i].Sets = len(group)
		for _, s := range group {
			out[i].Reps += s.ActualReps
		}
		out[i].Volume = ComputeVolume(out[i].ExerciseType, group, bodyweight, loadPercentage)
	}
	return out
}

// TotalVolume sums SessionVolume across exercises.
func TotalVolume(sets []CompletedSet, bodyweight, loadPercentage float64) float64 {
	var total float64
	for _, ev := range SessionVolume(sets, bodyweight, loadPercentage) {
		total += ev.Volume
	}
	return total
}
