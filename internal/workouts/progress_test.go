package workouts

import (
	"testing"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProgress_VBT(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	window := Window{Start: start, End: start.AddDate(0, 0, 7)}

	plans := []ExercisePlan{
		{ExerciseName: "Back Squat", TrackingMode: TrackingVBT, SetsRequired: 5},
	}

	summaries := []vbt.SetSummary{
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: start.Add(time.Hour)},
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: start.AddDate(0, 0, 2)},
		// other player
		{PlayerID: "p2", Exercise: "Back Squat", CreatedAt: start.Add(time.Hour)},
		// other exercise
		{PlayerID: "p1", Exercise: "Front Squat", CreatedAt: start.Add(time.Hour)},
		// before the window opened
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: start.Add(-time.Hour)},
	}

	progress := ComputeProgress(plans, "p1", window, nil, summaries)
	require.Len(t, progress, 1)
	assert.Equal(t, 5, progress[0].SetsRequired)
	assert.Equal(t, 2, progress[0].SetsCompleted)
	assert.Nil(t, progress[0].WeightLbs)
	assert.Nil(t, progress[0].RepsPerSet)
}

func TestComputeProgress_SelfReport(t *testing.T) {
	window := Window{Start: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}

	plans := []ExercisePlan{
		{ExerciseName: "Nordic Curl", TrackingMode: TrackingSelfReport, SetsRequired: 3},
		{ExerciseName: "Box Jump", TrackingMode: TrackingSelfReport, SetsRequired: 4},
	}

	weight := 45.0
	reps := 8
	logs := []ExerciseLog{
		{PlayerID: "p1", ExerciseName: "Nordic Curl", SetsCompleted: 3, WeightLbs: &weight, RepsPerSet: &reps},
		{PlayerID: "p2", ExerciseName: "Box Jump", SetsCompleted: 4},
	}

	progress := ComputeProgress(plans, "p1", window, logs, nil)
	require.Len(t, progress, 2)

	assert.Equal(t, 3, progress[0].SetsCompleted)
	require.NotNil(t, progress[0].WeightLbs)
	assert.Equal(t, weight, *progress[0].WeightLbs)
	require.NotNil(t, progress[0].RepsPerSet)
	assert.Equal(t, reps, *progress[0].RepsPerSet)

	// p2's log must not leak into p1's grid
	assert.Zero(t, progress[1].SetsCompleted)
}

func TestStarted(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	window := Window{Start: start, End: start.AddDate(0, 0, 7)}

	logPairs := map[LogPair]struct{}{
		{AssignmentID: "a1", PlayerID: "p1"}: {},
	}

	// log binding counts even with no summaries
	assert.True(t, Started("a1", "p1", window, logPairs, nil))
	assert.False(t, Started("a1", "p2", window, logPairs, nil))
	assert.False(t, Started("a2", "p1", window, logPairs, nil))

	inWindow := []vbt.SetSummary{
		{PlayerID: "p2", Exercise: "Back Squat", CreatedAt: start.Add(time.Hour)},
	}
	assert.True(t, Started("a1", "p2", window, nil, inWindow))

	outOfWindow := []vbt.SetSummary{
		{PlayerID: "p2", Exercise: "Back Squat", CreatedAt: start.Add(-time.Hour)},
	}
	assert.False(t, Started("a1", "p2", window, nil, outOfWindow))
}
