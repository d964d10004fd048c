package workouts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestParseContent_V2(t *testing.T) {
	tracked := DefaultTrackedExercises()

	content := Content{
		Version: 2,
		Exercises: []Exercise{
			{
				Name: "Back Squat",
				SetGroups: []SetGroup{
					{Sets: intPtr(3), Reps: intPtr(5)},
					{Sets: intPtr(2), Reps: intPtr(3)},
				},
			},
			{
				Name:      "Nordic Curl",
				SetGroups: []SetGroup{{Sets: intPtr(4)}},
			},
		},
	}

	plans, err := ParseContent(content, tracked)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "Back Squat", plans[0].ExerciseName)
	assert.Equal(t, TrackingVBT, plans[0].TrackingMode)
	assert.Equal(t, 5, plans[0].SetsRequired)

	assert.Equal(t, "Nordic Curl", plans[1].ExerciseName)
	assert.Equal(t, TrackingSelfReport, plans[1].TrackingMode)
	assert.Equal(t, 4, plans[1].SetsRequired)
}

func TestParseContent_V2_ExplicitMode(t *testing.T) {
	tracked := DefaultTrackedExercises()

	content := Content{
		Version: 2,
		Exercises: []Exercise{
			{
				// tracked lift forced to self report
				Name:         "Bench Press",
				SetGroups:    []SetGroup{{Sets: intPtr(3)}},
				TrackingMode: "self_report",
			},
			{
				// bogus mode falls back to derivation
				Name:         "Deadlift",
				SetGroups:    []SetGroup{{Sets: intPtr(1)}},
				TrackingMode: "velocity",
			},
		},
	}

	plans, err := ParseContent(content, tracked)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, TrackingSelfReport, plans[0].TrackingMode)
	assert.Equal(t, TrackingVBT, plans[1].TrackingMode)
}

func TestParseContent_Legacy(t *testing.T) {
	tracked := DefaultTrackedExercises()

	content := Content{
		Legacy: []LegacyExercise{
			{Name: "Power Clean", Sets: intPtr(5)},
			{Name: "  Box Jump ", Sets: intPtr(3)},
		},
	}

	plans, err := ParseContent(content, tracked)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "Power Clean", plans[0].ExerciseName)
	assert.Equal(t, TrackingVBT, plans[0].TrackingMode)
	assert.Equal(t, 5, plans[0].SetsRequired)

	assert.Equal(t, "Box Jump", plans[1].ExerciseName)
	assert.Equal(t, TrackingSelfReport, plans[1].TrackingMode)
	assert.Equal(t, 3, plans[1].SetsRequired)
}

func TestParseContent_Invalid(t *testing.T) {
	tracked := DefaultTrackedExercises()

	for name, content := range map[string]Content{
		"v2 missing name": {
			Version:   2,
			Exercises: []Exercise{{Name: "   ", SetGroups: []SetGroup{{Sets: intPtr(3)}}}},
		},
		"v2 group without sets": {
			Version:   2,
			Exercises: []Exercise{{Name: "Back Squat", SetGroups: []SetGroup{{Reps: intPtr(5)}}}},
		},
		"v2 negative sets": {
			Version:   2,
			Exercises: []Exercise{{Name: "Back Squat", SetGroups: []SetGroup{{Sets: intPtr(-1)}}}},
		},
		"legacy missing name": {
			Legacy: []LegacyExercise{{Name: "", Sets: intPtr(3)}},
		},
		"legacy without sets": {
			Legacy: []LegacyExercise{{Name: "Back Squat"}},
		},
		"legacy negative sets": {
			Legacy: []LegacyExercise{{Name: "Back Squat", Sets: intPtr(-2)}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseContent(content, tracked)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestParseContent_DuplicatesAndOrderKept(t *testing.T) {
	tracked := DefaultTrackedExercises()

	content := Content{
		Version: 2,
		Exercises: []Exercise{
			{Name: "Back Squat", SetGroups: []SetGroup{{Sets: intPtr(3)}}},
			{Name: "Bench Press", SetGroups: []SetGroup{{Sets: intPtr(3)}}},
			{Name: "Back Squat", SetGroups: []SetGroup{{Sets: intPtr(1)}}},
		},
	}

	plans, err := ParseContent(content, tracked)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "Back Squat", plans[0].ExerciseName)
	assert.Equal(t, "Bench Press", plans[1].ExerciseName)
	assert.Equal(t, "Back Squat", plans[2].ExerciseName)
	assert.Equal(t, 1, plans[2].SetsRequired)
}

func TestContent_UnmarshalJSON(t *testing.T) {
	v2 := []byte(`{
		"version": 2,
		"exercises": [
			{
				"exerciseName": "Back Squat",
				"setGroups": [{"sets": 3, "reps": 5, "percentOfMax": 80}],
				"trackingMode": "vbt"
			}
		]
	}`)

	var c Content
	require.NoError(t, json.Unmarshal(v2, &c))
	assert.Equal(t, 2, c.Version)
	require.Len(t, c.Exercises, 1)
	assert.Empty(t, c.Legacy)
	assert.Equal(t, "Back Squat", c.Exercises[0].Name)
	require.Len(t, c.Exercises[0].SetGroups, 1)
	require.NotNil(t, c.Exercises[0].SetGroups[0].PercentOfMax)
	assert.Equal(t, float64(80), *c.Exercises[0].SetGroups[0].PercentOfMax)

	legacy := []byte(`{
		"exercises": [{"name": "Back Squat", "sets": 5, "reps": 5, "weight": 225}]
	}`)

	var l Content
	require.NoError(t, json.Unmarshal(legacy, &l))
	assert.Zero(t, l.Version)
	assert.Empty(t, l.Exercises)
	require.Len(t, l.Legacy, 1)
	assert.Equal(t, "Back Squat", l.Legacy[0].Name)
	require.NotNil(t, l.Legacy[0].Sets)
	assert.Equal(t, 5, *l.Legacy[0].Sets)
}

func TestContent_MarshalRoundTrip(t *testing.T) {
	c := Content{
		Version: 2,
		Exercises: []Exercise{
			{Name: "Push Press", SetGroups: []SetGroup{{Sets: intPtr(3), FixedWeight: floatPtr(95)}}},
		},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Content
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

func floatPtr(f float64) *float64 { return &f }

func TestNewTrackedExercises(t *testing.T) {
	tracked := NewTrackedExercises([]string{"Back Squat", "  ", "Safety Bar Squat "})
	assert.True(t, tracked.Contains("Back Squat"))
	assert.True(t, tracked.Contains("Safety Bar Squat"))
	assert.False(t, tracked.Contains("Bench Press"))
	assert.False(t, tracked.Contains(""))
}
