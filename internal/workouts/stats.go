package workouts

import "sort"

// MuscleGroupStats is one aggregate row of the statistics view.
type MuscleGroupStats struct {
	MuscleGroup  string  `json:"muscle_group"`
	WorkoutCount int     `json:"workout_count"`
	TotalReps    int     `json:"total_reps"`
	AvgWeight    float64 `json:"avg_weight"`
}

type statsAccumulator struct {
	workoutCount   int
	totalReps      int
	weightSum      float64
	weighedWorkout int
}

// AggregateStats reduces a list of workouts into one row per distinct
// muscle group. Average weight considers only sets with a positive
// numeric load; bodyweight and unrecorded sets are left out of both
// the sum and the divisor. Rows are ordered by workout count, highest
// first, ties keeping first-seen order.
func AggregateStats(workouts []Workout) []MuscleGroupStats {
	var groups []string
	accumulators := make(map[string]*statsAccumulator)

	for _, w := range workouts {
		acc, ok := accumulators[w.MuscleGroup]
		if !ok {
			acc = &statsAccumulator{}
			accumulators[w.MuscleGroup] = acc
			groups = append(groups, w.MuscleGroup)
		}

		acc.workoutCount++
		acc.totalReps += w.Reps
		if kilos, ok := w.Weight.Kilos(); ok && kilos > 0 {
			acc.weightSum += kilos
			acc.weighedWorkout++
		}
	}

	stats := make([]MuscleGroupStats, 0, len(groups))
	for _, group := range groups {
		acc := accumulators[group]
		avgWeight := 0.0
		if acc.weighedWorkout > 0 {
			avgWeight = acc.weightSum / float64(acc.weighedWorkout)
		}
		stats = append(stats, MuscleGroupStats{
			MuscleGroup:  group,
			WorkoutCount: acc.workoutCount,
			TotalReps:    acc.totalReps,
			AvgWeight:    avgWeight,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].WorkoutCount > stats[j].WorkoutCount
	})

	return stats
}
