package workouts

import "time"

const (
	TargetTeam          = "team"
	TargetPositionGroup = "position_group"
	TargetPlayers       = "players"
)

const (
	AssignmentStatusActive    = "active"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusArchived  = "archived"
)

type Template struct {
	ID          string    `json:"id"`
	CoachID     string    `json:"coach_id"`
	Sport       string    `json:"sport"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Content     Content   `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type Assignment struct {
	ID                  string     `json:"id"`
	TeamID              string     `json:"team_id"`
	TemplateID          string     `json:"template_id"`
	TargetType          string     `json:"target_type"`
	TargetPositionGroup *string    `json:"target_position_group"`
	StartAt             *time.Time `json:"start_at"`
	DueAt               *time.Time `json:"due_at"`
	Status              string     `json:"status"`
	Notes               *string    `json:"notes"`
	CreatedBy           *string    `json:"created_by"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ExerciseLog is a self-reported completion row, one per
// (assignment, player, exercise name).
type ExerciseLog struct {
	ID            string    `json:"id"`
	AssignmentID  string    `json:"assignment_id"`
	PlayerID      string    `json:"player_id"`
	ExerciseName  string    `json:"exercise_name"`
	WeightLbs     *float64  `json:"weight_lbs"`
	SetsCompleted int       `json:"sets_completed"`
	RepsPerSet    *int      `json:"reps_per_set"`
	Notes         *string   `json:"notes"`
	LoggedAt      time.Time `json:"logged_at"`
}

type PlayerIDSet map[string]struct{}

func (s PlayerIDSet) Contains(playerID string) bool {
	_, ok := s[playerID]
	return ok
}
