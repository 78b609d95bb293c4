package workouts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Workout is a single logged set: an exercise done on a calendar day
// with reps and an optional load.
type Workout struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	Day          string    `json:"date"` // YYYY-MM-DD
	MuscleGroup  string    `json:"muscleGroup"`
	ExerciseName string    `json:"exerciseName"`
	Reps         int       `json:"reps"`
	Weight       Weight    `json:"weight"`
	Notes        string    `json:"notes,omitempty"`
	IsPublic     bool      `json:"isPublic"`
	CreatedAt    time.Time `json:"createdAt"`
}

type weightKind int

const (
	weightUnset weightKind = iota
	weightBodyweight
	weightKilos
)

// legacy clients encode bodyweight as -1 and a missing weight as null
const bodyweightSentinel = -1

// Weight is the load used for a set: a number of kilos, plain
// bodyweight, or not recorded at all. The zero value is "not recorded".
type Weight struct {
	kind  weightKind
	kilos float64
}

func Kilos(k float64) Weight {
	return Weight{kind: weightKilos, kilos: k}
}

func Bodyweight() Weight {
	return Weight{kind: weightBodyweight}
}

func UnsetWeight() Weight {
	return Weight{kind: weightUnset}
}

// Kilos returns the numeric load, with ok false for bodyweight/unset.
func (w Weight) Kilos() (float64, bool) {
	if w.kind != weightKilos {
		return 0, false
	}
	return w.kilos, true
}

func (w Weight) IsBodyweight() bool {
	return w.kind == weightBodyweight
}

func (w Weight) IsSet() bool {
	return w.kind != weightUnset
}

func (w Weight) String() string {
	switch w.kind {
	case weightBodyweight:
		return "bodyweight"
	case weightKilos:
		return fmt.Sprintf("%gkg", w.kilos)
	default:
		return "unset"
	}
}

func (w Weight) MarshalJSON() ([]byte, error) {
	switch w.kind {
	case weightKilos:
		return json.Marshal(w.kilos)
	case weightBodyweight:
		return json.Marshal(bodyweightSentinel)
	default:
		return []byte("null"), nil
	}
}

func (w *Weight) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*w = UnsetWeight()
		return nil
	}

	var val float64
	if err := json.Unmarshal(data, &val); err != nil {
		return fmt.Errorf("weight must be a number, -1 or null: %w", err)
	}
	if val == bodyweightSentinel {
		*w = Bodyweight()
		return nil
	}
	if val < 0 {
		return fmt.Errorf("weight must be non-negative, got %g", val)
	}

	*w = Kilos(val)
	return nil
}

// dbValue flattens the weight for storage: NULL for unset, the
// sentinel for bodyweight, the plain number otherwise.
func (w Weight) dbValue() *float64 {
	switch w.kind {
	case weightKilos:
		k := w.kilos
		return &k
	case weightBodyweight:
		s := float64(bodyweightSentinel)
		return &s
	default:
		return nil
	}
}

func weightFromDB(val *float64) Weight {
	if val == nil {
		return UnsetWeight()
	}
	if *val == bodyweightSentinel {
		return Bodyweight()
	}
	return Kilos(*val)
}

// EstimatedOneRepMax returns the Epley one-rep-max estimate for the
// set, rounded to the nearest integer. A single rep is already a max
// attempt and is reported as is. The estimate is undefined (ok false)
// for bodyweight or unrecorded loads and for zero reps.
func (w Workout) EstimatedOneRepMax() (int, bool) {
	kilos, ok := w.Weight.Kilos()
	if !ok || kilos <= 0 || w.Reps <= 0 {
		return 0, false
	}
	if w.Reps == 1 {
		return int(math.Round(kilos)), true
	}
	return int(math.Round(kilos * (1 + float64(w.Reps)/30))), true
}

// VolumeContribution is weight x reps, with bodyweight and unrecorded
// loads contributing nothing.
func (w Workout) VolumeContribution() float64 {
	kilos, ok := w.Weight.Kilos()
	if !ok {
		return 0
	}
	return kilos * float64(w.Reps)
}
