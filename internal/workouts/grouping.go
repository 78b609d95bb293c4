package workouts

import "sort"

// DaySet is one set within a day view group, annotated with its
// 1-based position and the Epley estimate.
type DaySet struct {
	Workout
	SetNumber int `json:"setNumber"`
	// absent when the estimate is undefined (bodyweight, unset, no reps)
	EstimatedOneRepMax *int `json:"estimatedOneRepMax,omitempty"`
	IsTopSet           bool `json:"isTopSet"`
}

type DayGroup struct {
	MuscleGroup  string   `json:"muscleGroup"`
	ExerciseName string   `json:"exerciseName"`
	Sets         []DaySet `json:"sets"`
	Volume       float64  `json:"volume"`
}

type DayView struct {
	Day         string     `json:"date"`
	Groups      []DayGroup `json:"groups"`
	TotalVolume float64    `json:"totalVolume"`
}

type groupKey struct {
	muscleGroup  string
	exerciseName string
}

// GroupByExercise partitions a day's flat workout list into groups
// keyed by (muscle group, exercise name). Sets within a group are
// ordered by creation time ascending and numbered from 1. The heaviest
// set of each group is flagged, first one winning on ties. Volume is
// weight x reps summed per group and over the whole day, bodyweight
// and unrecorded loads contributing nothing.
func GroupByExercise(day string, workouts []Workout) DayView {
	ordered := make([]Workout, len(workouts))
	copy(ordered, workouts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var keys []groupKey
	groupSets := make(map[groupKey][]Workout)
	for _, w := range ordered {
		key := groupKey{muscleGroup: w.MuscleGroup, exerciseName: w.ExerciseName}
		if _, seen := groupSets[key]; !seen {
			keys = append(keys, key)
		}
		groupSets[key] = append(groupSets[key], w)
	}

	view := DayView{
		Day:    day,
		Groups: make([]DayGroup, 0, len(keys)),
	}

	for _, key := range keys {
		sets := groupSets[key]

		group := DayGroup{
			MuscleGroup:  key.muscleGroup,
			ExerciseName: key.exerciseName,
			Sets:         make([]DaySet, 0, len(sets)),
		}

		topSetIndex := -1
		topSetKilos := 0.0
		for i, w := range sets {
			daySet := DaySet{
				Workout:   w,
				SetNumber: i + 1,
			}
			if oneRepMax, ok := w.EstimatedOneRepMax(); ok {
				daySet.EstimatedOneRepMax = &oneRepMax
			}
			group.Sets = append(group.Sets, daySet)
			group.Volume += w.VolumeContribution()

			if kilos, ok := w.Weight.Kilos(); ok && kilos > topSetKilos {
				topSetIndex = i
				topSetKilos = kilos
			}
		}
		if topSetIndex >= 0 {
			group.Sets[topSetIndex].IsTopSet = true
		}

		view.TotalVolume += group.Volume
		view.Groups = append(view.Groups, group)
	}

	return view
}
