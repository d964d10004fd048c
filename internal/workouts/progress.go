package workouts

import "github.com/cmpeavlerjr72/vbt-api/internal/vbt"

// ExerciseProgress is one exercise's completion state for one player.
type ExerciseProgress struct {
	ExerciseName  string       `json:"exercise_name"`
	TrackingMode  TrackingMode `json:"tracking_mode"`
	SetsRequired  int          `json:"sets_required"`
	SetsCompleted int          `json:"sets_completed"`
	WeightLbs     *float64     `json:"weight_lbs"`
	RepsPerSet    *int         `json:"reps_per_set"`
}

// ComputeProgress walks the parsed plan in order and fills in what one
// player has done. VBT exercises count sensor set summaries for the
// exact exercise name inside the window. Self-reported exercises read
// the player's log row for the assignment; a missing row is simply
// zero progress.
func ComputeProgress(
	plans []ExercisePlan,
	playerID string,
	window Window,
	logs []ExerciseLog,
	summaries []vbt.SetSummary,
) []ExerciseProgress {
	progress := make([]ExerciseProgress, 0, len(plans))

	for _, plan := range plans {
		entry := ExerciseProgress{
			ExerciseName: plan.ExerciseName,
			TrackingMode: plan.TrackingMode,
			SetsRequired: plan.SetsRequired,
		}

		switch plan.TrackingMode {
		case TrackingVBT:
			for _, s := range summaries {
				if s.PlayerID != playerID || s.Exercise != plan.ExerciseName {
					continue
				}
				if window.Contains(s.CreatedAt) {
					entry.SetsCompleted++
				}
			}
		case TrackingSelfReport:
			for _, logRow := range logs {
				if logRow.PlayerID != playerID || logRow.ExerciseName != plan.ExerciseName {
					continue
				}
				entry.SetsCompleted = logRow.SetsCompleted
				entry.WeightLbs = logRow.WeightLbs
				entry.RepsPerSet = logRow.RepsPerSet
				break
			}
		}

		progress = append(progress, entry)
	}

	return progress
}

// Started reports whether a player has any activity toward an
// assignment: a self-report row bound to it, or any sensor summary
// inside the window. The log binding intentionally ignores the window.
func Started(
	assignmentID, playerID string,
	window Window,
	logPairs map[LogPair]struct{},
	summaries []vbt.SetSummary,
) bool {
	if _, ok := logPairs[LogPair{AssignmentID: assignmentID, PlayerID: playerID}]; ok {
		return true
	}
	for _, s := range summaries {
		if s.PlayerID == playerID && window.Contains(s.CreatedAt) {
			return true
		}
	}
	return false
}

// LogPair keys self-report rows by their assignment binding.
type LogPair struct {
	AssignmentID string
	PlayerID     string
}
