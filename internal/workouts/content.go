package workouts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type TrackingMode string

const (
	TrackingVBT        TrackingMode = "vbt"
	TrackingSelfReport TrackingMode = "self_report"
)

// ErrInvalidTemplate marks template content that cannot be turned into
// an exercise plan: missing names, missing or negative set counts.
var ErrInvalidTemplate = errors.New("invalid template content")

const contentVersionV2 = 2

// SetGroup is one prescription block in a v2 template, e.g. 3x5 @ 80%.
type SetGroup struct {
	Sets         *int     `json:"sets"`
	Reps         *int     `json:"reps,omitempty"`
	PercentOfMax *float64 `json:"percentOfMax,omitempty"`
	FixedWeight  *float64 `json:"fixedWeight,omitempty"`
}

// Exercise is a v2 template entry.
type Exercise struct {
	Name         string     `json:"exerciseName"`
	SetGroups    []SetGroup `json:"setGroups"`
	TrackingMode string     `json:"trackingMode,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// LegacyExercise is the flat pre-versioning template entry.
type LegacyExercise struct {
	Name   string   `json:"name"`
	Sets   *int     `json:"sets"`
	Reps   *int     `json:"reps,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// Content is the template body stored in the content JSONB column. The
// two schema versions that exist in the wild are normalized here, at
// the edge, so nothing downstream branches on field presence.
type Content struct {
	Version   int
	Exercises []Exercise
	Legacy    []LegacyExercise
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var head struct {
		Version   int               `json:"version"`
		Exercises []json.RawMessage `json:"exercises"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("template content: %w", err)
	}

	c.Version = head.Version
	c.Exercises = nil
	c.Legacy = nil

	for i, raw := range head.Exercises {
		if c.Version == contentVersionV2 {
			var ex Exercise
			if err := json.Unmarshal(raw, &ex); err != nil {
				return fmt.Errorf("template content, exercise %d: %w", i, err)
			}
			c.Exercises = append(c.Exercises, ex)
		} else {
			var ex LegacyExercise
			if err := json.Unmarshal(raw, &ex); err != nil {
				return fmt.Errorf("template content, exercise %d: %w", i, err)
			}
			c.Legacy = append(c.Legacy, ex)
		}
	}

	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Version == contentVersionV2 {
		exercises := c.Exercises
		if exercises == nil {
			exercises = []Exercise{}
		}
		return json.Marshal(struct {
			Version   int        `json:"version"`
			Exercises []Exercise `json:"exercises"`
		}{c.Version, exercises})
	}

	legacy := c.Legacy
	if legacy == nil {
		legacy = []LegacyExercise{}
	}
	return json.Marshal(struct {
		Version   int              `json:"version"`
		Exercises []LegacyExercise `json:"exercises"`
	}{c.Version, legacy})
}

// ExercisePlan is one parsed exercise: what counts as done and how
// many sets it takes.
type ExercisePlan struct {
	ExerciseName string       `json:"exercise_name"`
	TrackingMode TrackingMode `json:"tracking_mode"`
	SetsRequired int          `json:"sets_required"`
}

// TrackedExercises is the set of barbell movements the bar sensors can
// follow; anything else falls back to self reporting.
type TrackedExercises map[string]struct{}

func NewTrackedExercises(names []string) TrackedExercises {
	tracked := make(TrackedExercises, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			tracked[name] = struct{}{}
		}
	}
	return tracked
}

func DefaultTrackedExercises() TrackedExercises {
	return NewTrackedExercises([]string{
		"Back Squat",
		"Front Squat",
		"Bench Press",
		"Incline Bench",
		"Deadlift",
		"Trap Bar Deadlift",
		"Power Clean",
		"Hang Clean",
		"Push Press",
		"Overhead Press",
	})
}

func (t TrackedExercises) Contains(exerciseName string) bool {
	_, ok := t[exerciseName]
	return ok
}

// ParseContent turns template content into an ordered exercise plan.
// Order and duplicates are preserved. Entries with no usable name or
// set count make the whole template invalid.
func ParseContent(c Content, tracked TrackedExercises) ([]ExercisePlan, error) {
	if c.Version == contentVersionV2 {
		return parseV2(c.Exercises, tracked)
	}
	return parseLegacy(c.Legacy, tracked)
}

func parseV2(exercises []Exercise, tracked TrackedExercises) ([]ExercisePlan, error) {
	plans := make([]ExercisePlan, 0, len(exercises))
	for i, ex := range exercises {
		name := strings.TrimSpace(ex.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: exercise %d has no name", ErrInvalidTemplate, i)
		}

		var setsRequired int
		for j, group := range ex.SetGroups {
			if group.Sets == nil {
				return nil, fmt.Errorf(
					"%w: exercise %q set group %d has no sets", ErrInvalidTemplate, name, j)
			}
			if *group.Sets < 0 {
				return nil, fmt.Errorf(
					"%w: exercise %q set group %d has negative sets", ErrInvalidTemplate, name, j)
			}
			setsRequired += *group.Sets
		}

		plans = append(plans, ExercisePlan{
			ExerciseName: name,
			TrackingMode: resolveMode(ex.TrackingMode, name, tracked),
			SetsRequired: setsRequired,
		})
	}
	return plans, nil
}

func parseLegacy(exercises []LegacyExercise, tracked TrackedExercises) ([]ExercisePlan, error) {
	plans := make([]ExercisePlan, 0, len(exercises))
	for i, ex := range exercises {
		name := strings.TrimSpace(ex.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: exercise %d has no name", ErrInvalidTemplate, i)
		}
		if ex.Sets == nil {
			return nil, fmt.Errorf("%w: exercise %q has no sets", ErrInvalidTemplate, name)
		}
		if *ex.Sets < 0 {
			return nil, fmt.Errorf("%w: exercise %q has negative sets", ErrInvalidTemplate, name)
		}

		plans = append(plans, ExercisePlan{
			ExerciseName: name,
			TrackingMode: resolveMode("", name, tracked),
			SetsRequired: *ex.Sets,
		})
	}
	return plans, nil
}

// resolveMode honors an explicit valid mode and otherwise derives it
// from the tracked-exercise set.
func resolveMode(explicit, exerciseName string, tracked TrackedExercises) TrackingMode {
	switch TrackingMode(explicit) {
	case TrackingVBT, TrackingSelfReport:
		return TrackingMode(explicit)
	}
	if tracked.Contains(exerciseName) {
		return TrackingVBT
	}
	return TrackingSelfReport
}
