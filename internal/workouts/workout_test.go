package workouts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeight_JSONRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		weight   Weight
		wantJSON string
	}{
		{name: "kilos", weight: Kilos(82.5), wantJSON: "82.5"},
		{name: "bodyweight", weight: Bodyweight(), wantJSON: "-1"},
		{name: "unset", weight: UnsetWeight(), wantJSON: "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.weight)
			require.NoError(t, err)
			assert.Equal(t, tc.wantJSON, string(data))

			var decoded Weight
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tc.weight, decoded)
		})
	}
}

func TestWeight_UnmarshalInvalid(t *testing.T) {
	var w Weight
	assert.Error(t, json.Unmarshal([]byte(`-5`), &w))
	assert.Error(t, json.Unmarshal([]byte(`"hundred"`), &w))
}

func TestWeight_Accessors(t *testing.T) {
	kilos, ok := Kilos(100).Kilos()
	assert.True(t, ok)
	assert.Equal(t, float64(100), kilos)

	_, ok = Bodyweight().Kilos()
	assert.False(t, ok)
	assert.True(t, Bodyweight().IsBodyweight())
	assert.True(t, Bodyweight().IsSet())

	assert.False(t, UnsetWeight().IsSet())
	assert.Equal(t, "bodyweight", Bodyweight().String())
	assert.Equal(t, "100kg", Kilos(100).String())
}

func TestWorkout_EstimatedOneRepMax(t *testing.T) {
	testCases := []struct {
		name   string
		weight Weight
		reps   int
		want   int
		wantOk bool
	}{
		{name: "single rep is already a max", weight: Kilos(100), reps: 1, want: 100, wantOk: true},
		{name: "ten reps", weight: Kilos(100), reps: 10, want: 133, wantOk: true},
		{name: "five reps", weight: Kilos(60), reps: 5, want: 70, wantOk: true},
		{name: "bodyweight undefined", weight: Bodyweight(), reps: 10, wantOk: false},
		{name: "unset undefined", weight: UnsetWeight(), reps: 10, wantOk: false},
		{name: "zero reps undefined", weight: Kilos(100), reps: 0, wantOk: false},
		{name: "zero weight undefined", weight: Kilos(0), reps: 10, wantOk: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := Workout{Weight: tc.weight, Reps: tc.reps}
			got, ok := w.EstimatedOneRepMax()
			assert.Equal(t, tc.wantOk, ok)
			if tc.wantOk {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestWorkout_VolumeContribution(t *testing.T) {
	assert.Equal(t, float64(800), Workout{Weight: Kilos(80), Reps: 10}.VolumeContribution())
	assert.Equal(t, float64(0), Workout{Weight: Bodyweight(), Reps: 10}.VolumeContribution())
	assert.Equal(t, float64(0), Workout{Weight: UnsetWeight(), Reps: 10}.VolumeContribution())
}

func TestWeight_DBRoundTrip(t *testing.T) {
	for _, w := range []Weight{Kilos(42.5), Bodyweight(), UnsetWeight()} {
		assert.Equal(t, w, weightFromDB(w.dbValue()))
	}
}
