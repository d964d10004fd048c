package workouts

import (
	"context"
	"fmt"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"

	log "github.com/sirupsen/logrus"
)


type templatesGetter interface {
	Get(ctx context.Context, id string) (*Template, error)
}

type assignmentsReader interface {
	Get(ctx context.Context, id string) (*Assignment, error)
	ListActiveForTeam(ctx context.Context, teamID string) ([]Assignment, error)
	Membership(ctx context.Context, assignmentIDs []string) (map[string]PlayerIDSet, error)
}

type logsReadWriter interface {
	Upsert(ctx context.Context, logRow ExerciseLog) (*ExerciseLog, error)
	ListForAssignmentPlayer(ctx context.Context, assignmentID, playerID string) ([]ExerciseLog, error)
}

type summariesReader interface {
	ListSummariesForPlayersSince(ctx context.Context, playerIDs []string, since time.Time) ([]vbt.SetSummary, error)
}

type rosterReader interface {
	Get(ctx context.Context, id string) (*players.Player, error)
	ListForTeam(ctx context.Context, teamID string) ([]players.Player, error)
}

type teamsGuard interface {
	GetForCoach(ctx context.Context, id, coachID string) (*teams.Team, error)
}

// Service composes the template parser, the eligibility resolver and
// the progress calculator over the stored rows.
type Service struct {
	templates   templatesGetter
	assignments assignmentsReader
	logs        logsReadWriter
	summaries   summariesReader
	roster      rosterReader
	teams       teamsGuard
	tracked     TrackedExercises
}

func NewService(
	templates templatesGetter,
	assignments assignmentsReader,
	logs logsReadWriter,
	summaries summariesReader,
	roster rosterReader,
	teams teamsGuard,
	tracked TrackedExercises,
) *Service {
	return &Service{
		templates:   templates,
		assignments: assignments,
		logs:        logs,
		summaries:   summaries,
		roster:      roster,
		teams:       teams,
		tracked:     tracked,
	}
}

type ActiveWorkout struct {
	Assignment   Assignment         `json:"assignment"`
	TemplateName string             `json:"template_name"`
	Exercises    []ExerciseProgress `json:"exercises"`
}

// ActiveWorkouts lists the active assignments targeting one player,
// each with that player's per-exercise progress. Assignments whose
// template content cannot be parsed are skipped with a warning rather
// than failing the whole list.
func (s *Service) ActiveWorkouts(ctx context.Context, playerID string) ([]ActiveWorkout, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.service.activeWorkouts")
	defer span.End()

	player, err := s.roster.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}

	assignments, err := s.assignments.ListActiveForTeam(ctx, player.TeamID)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}

	assignmentIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		assignmentIDs = append(assignmentIDs, a.ID)
	}
	membership, err := s.assignments.Membership(ctx, assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("assignment membership: %w", err)
	}

	active := []ActiveWorkout{}
	for _, a := range assignments {
		eligible := EligiblePlayers(a, []players.Player{*player}, membership)
		if !eligible.Contains(player.ID) {
			continue
		}

		template, err := s.templates.Get(ctx, a.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("get template: %w", err)
		}
		plans, err := ParseContent(template.Content, s.tracked)
		if err != nil {
			log.Warnf("skipping assignment %s, template %s: %s", a.ID, template.ID, err)
			continue
		}

		window := a.EffectiveWindow(Window{Start: a.CreatedAt})
		logs, err := s.logs.ListForAssignmentPlayer(ctx, a.ID, player.ID)
		if err != nil {
			return nil, fmt.Errorf("list exercise logs: %w", err)
		}
		summaries, err := s.summaries.ListSummariesForPlayersSince(ctx, []string{player.ID}, window.Start)
		if err != nil {
			return nil, fmt.Errorf("list set summaries: %w", err)
		}

		active = append(active, ActiveWorkout{
			Assignment:   a,
			TemplateName: template.Name,
			Exercises:    ComputeProgress(plans, player.ID, window, logs, summaries),
		})
	}

	return active, nil
}

type PlayerProgress struct {
	PlayerID      string             `json:"player_id"`
	PlayerName    string             `json:"player_name"`
	PositionGroup string             `json:"position_group"`
	Started       bool               `json:"started"`
	Exercises     []ExerciseProgress `json:"exercises"`
}

type AssignmentProgress struct {
	Assignment   Assignment       `json:"assignment"`
	TemplateName string           `json:"template_name"`
	Players      []PlayerProgress `json:"players"`
}

// Progress builds the coach-facing grid: one row per eligible player
// with per-exercise completion. Roster players come first in roster
// order; explicitly targeted players off the roster follow.
func (s *Service) Progress(ctx context.Context, assignmentID, coachID string) (*AssignmentProgress, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.service.progress")
	defer span.End()

	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if _, err := s.teams.GetForCoach(ctx, assignment.TeamID, coachID); err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}

	template, err := s.templates.Get(ctx, assignment.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	plans, err := ParseContent(template.Content, s.tracked)
	if err != nil {
		return nil, err
	}

	roster, err := s.roster.ListForTeam(ctx, assignment.TeamID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	membership, err := s.assignments.Membership(ctx, []string{assignment.ID})
	if err != nil {
		return nil, fmt.Errorf("assignment membership: %w", err)
	}

	eligible := EligiblePlayers(*assignment, roster, membership)

	ordered := make([]players.Player, 0, len(eligible))
	seen := PlayerIDSet{}
	for _, p := range roster {
		if eligible.Contains(p.ID) {
			ordered = append(ordered, p)
			seen[p.ID] = struct{}{}
		}
	}
	for playerID := range eligible {
		if seen.Contains(playerID) {
			continue
		}
		offRoster, err := s.roster.Get(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("get targeted player: %w", err)
		}
		ordered = append(ordered, *offRoster)
	}

	window := assignment.EffectiveWindow(Window{Start: assignment.CreatedAt})

	playerIDs := make([]string, 0, len(ordered))
	for _, p := range ordered {
		playerIDs = append(playerIDs, p.ID)
	}
	summaries, err := s.summaries.ListSummariesForPlayersSince(ctx, playerIDs, window.Start)
	if err != nil {
		return nil, fmt.Errorf("list set summaries: %w", err)
	}

	progress := &AssignmentProgress{
		Assignment:   *assignment,
		TemplateName: template.Name,
		Players:      []PlayerProgress{},
	}

	for _, p := range ordered {
		logs, err := s.logs.ListForAssignmentPlayer(ctx, assignment.ID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list exercise logs: %w", err)
		}

		started := len(logs) > 0
		if !started {
			for _, summary := range summaries {
				if summary.PlayerID == p.ID && window.Contains(summary.CreatedAt) {
					started = true
					break
				}
			}
		}

		progress.Players = append(progress.Players, PlayerProgress{
			PlayerID:      p.ID,
			PlayerName:    p.FullName(),
			PositionGroup: p.PositionGroup,
			Started:       started,
			Exercises:     ComputeProgress(plans, p.ID, window, logs, summaries),
		})
	}

	return progress, nil
}

// LogEntry is one exercise a player self-reports.
type LogEntry struct {
	ExerciseName  string   `json:"exercise_name"`
	WeightLbs     *float64 `json:"weight_lbs"`
	SetsCompleted int      `json:"sets_completed"`
	RepsPerSet    *int     `json:"reps_per_set"`
	Notes         *string  `json:"notes"`
}

// SubmitLogs upserts a player's self-reported rows for an assignment.
func (s *Service) SubmitLogs(ctx context.Context, assignmentID, playerID string, entries []LogEntry) ([]ExerciseLog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.service.submitLogs")
	defer span.End()

	if _, err := s.assignments.Get(ctx, assignmentID); err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	saved := make([]ExerciseLog, 0, len(entries))
	for _, entry := range entries {
		upserted, err := s.logs.Upsert(ctx, ExerciseLog{
			AssignmentID:  assignmentID,
			PlayerID:      playerID,
			ExerciseName:  entry.ExerciseName,
			WeightLbs:     entry.WeightLbs,
			SetsCompleted: entry.SetsCompleted,
			RepsPerSet:    entry.RepsPerSet,
			Notes:         entry.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert log %q: %w", entry.ExerciseName, err)
		}
		saved = append(saved, *upserted)
	}

	return saved, nil
}
