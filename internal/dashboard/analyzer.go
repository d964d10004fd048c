package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"
	"github.com/cmpeavlerjr72/vbt-api/internal/workouts"
)


const (
	feedLimit            = 20
	leaderboardFetchSize = 500
)

type teamsReader interface {
	ListForCoach(ctx context.Context, coachID string) ([]teams.Team, error)
}

type rosterReader interface {
	ListForTeams(ctx context.Context, teamIDs []string) ([]players.Player, error)
}

type assignmentsReader interface {
	ListDueBetween(ctx context.Context, teamIDs []string, since, until time.Time) ([]workouts.Assignment, error)
	Membership(ctx context.Context, assignmentIDs []string) (map[string]workouts.PlayerIDSet, error)
}

type logsReader interface {
	LogPairs(ctx context.Context, assignmentIDs []string) (map[workouts.LogPair]struct{}, error)
	ListRecentForPlayers(ctx context.Context, playerIDs []string, limit int) ([]workouts.ExerciseLog, error)
}

type summariesReader interface {
	ListSummariesForPlayersSince(ctx context.Context, playerIDs []string, since time.Time) ([]vbt.SetSummary, error)
	ListSummariesForTeam(ctx context.Context, teamID string, limit int) ([]vbt.SetSummary, error)
}

type templatesGetter interface {
	Get(ctx context.Context, id string) (*workouts.Template, error)
}

// Analyzer fetches a coach's rows and runs the pure rollups on them.
type Analyzer struct {
	teams       teamsReader
	roster      rosterReader
	assignments assignmentsReader
	logs        logsReader
	summaries   summariesReader
	templates   templatesGetter
}

func NewAnalyzer(
	teams teamsReader,
	roster rosterReader,
	assignments assignmentsReader,
	logs logsReader,
	summaries summariesReader,
	templates templatesGetter,
) *Analyzer {
	return &Analyzer{
		teams:       teams,
		roster:      roster,
		assignments: assignments,
		logs:        logs,
		summaries:   summaries,
		templates:   templates,
	}
}

// coachContext is the fetched slice of the world one coach sees.
type coachContext struct {
	teams  []teams.Team
	roster []players.Player
}

func (a *Analyzer) coachContext(ctx context.Context, coachID string) (*coachContext, error) {
	coachTeams, err := a.teams.ListForCoach(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("list coach teams: %w", err)
	}
	roster, err := a.roster.ListForTeams(ctx, teams.TeamIDs(coachTeams))
	if err != nil {
		return nil, fmt.Errorf("list coach roster: %w", err)
	}
	return &coachContext{teams: coachTeams, roster: roster}, nil
}

func (a *Analyzer) complianceInput(
	ctx context.Context,
	cc *coachContext,
	since, until time.Time,
) (*ComplianceInput, error) {
	assignments, err := a.assignments.ListDueBetween(ctx, teams.TeamIDs(cc.teams), since, until)
	if err != nil {
		return nil, fmt.Errorf("list due assignments: %w", err)
	}

	assignmentIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		assignmentIDs = append(assignmentIDs, assignment.ID)
	}

	membership, err := a.assignments.Membership(ctx, assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("assignment membership: %w", err)
	}
	logPairs, err := a.logs.LogPairs(ctx, assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("log pairs: %w", err)
	}

	playerIDs := make([]string, 0, len(cc.roster))
	for _, p := range cc.roster {
		playerIDs = append(playerIDs, p.ID)
	}
	summaries, err := a.summaries.ListSummariesForPlayersSince(ctx, playerIDs, since)
	if err != nil {
		return nil, fmt.Errorf("list set summaries: %w", err)
	}

	return &ComplianceInput{
		Teams:       cc.teams,
		Roster:      cc.roster,
		Assignments: assignments,
		Membership:  membership,
		LogPairs:    logPairs,
		Summaries:   summaries,
		Since:       since,
		Until:       until,
	}, nil
}

// Compliance reports per-team and overall started percentages for
// assignments due inside [since, until].
func (a *Analyzer) Compliance(ctx context.Context, coachID string, since, until time.Time) (*ComplianceReport, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.compliance")
	defer span.End()

	cc, err := a.coachContext(ctx, coachID)
	if err != nil {
		return nil, err
	}
	input, err := a.complianceInput(ctx, cc, since, until)
	if err != nil {
		return nil, err
	}

	report := ComputeCompliance(*input)
	return &report, nil
}

type Stats struct {
	Teams          int `json:"teams"`
	Players        int `json:"players"`
	AssignmentsDue int `json:"assignments_due"`
	SetsThisWeek   int `json:"sets_this_week"`
	CompliancePct  int `json:"compliance_pct"`
}

// Stats fills the coach's top-of-dashboard cards over the trailing
// seven days.
func (a *Analyzer) Stats(ctx context.Context, coachID string, now time.Time) (*Stats, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.stats")
	defer span.End()

	since := now.AddDate(0, 0, -7)

	cc, err := a.coachContext(ctx, coachID)
	if err != nil {
		return nil, err
	}
	input, err := a.complianceInput(ctx, cc, since, now)
	if err != nil {
		return nil, err
	}

	report := ComputeCompliance(*input)

	setsThisWeek := 0
	for _, s := range input.Summaries {
		if !s.CreatedAt.After(now) {
			setsThisWeek++
		}
	}

	assignmentsDue := 0
	for _, team := range report.PerTeam {
		assignmentsDue += team.AssignmentsDue
	}

	return &Stats{
		Teams:          len(cc.teams),
		Players:        len(cc.roster),
		AssignmentsDue: assignmentsDue,
		SetsThisWeek:   setsThisWeek,
		CompliancePct:  report.OverallPct,
	}, nil
}

type TeamOverview struct {
	TeamID         string `json:"team_id"`
	TeamName       string `json:"team_name"`
	Sport          string `json:"sport"`
	Players        int    `json:"players"`
	AssignmentsDue int    `json:"assignments_due"`
	CompliancePct  int    `json:"compliance_pct"`
}

func (a *Analyzer) TeamOverviews(ctx context.Context, coachID string, since, until time.Time) ([]TeamOverview, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.teamOverviews")
	defer span.End()

	cc, err := a.coachContext(ctx, coachID)
	if err != nil {
		return nil, err
	}
	input, err := a.complianceInput(ctx, cc, since, until)
	if err != nil {
		return nil, err
	}

	report := ComputeCompliance(*input)
	rosterByTeam := players.PlayersByTeam(cc.roster)

	overviews := make([]TeamOverview, 0, len(cc.teams))
	for i, team := range cc.teams {
		overviews = append(overviews, TeamOverview{
			TeamID:         team.ID,
			TeamName:       team.Name,
			Sport:          team.Sport,
			Players:        len(rosterByTeam[team.ID]),
			AssignmentsDue: report.PerTeam[i].AssignmentsDue,
			CompliancePct:  report.PerTeam[i].CompliancePct,
		})
	}

	return overviews, nil
}

const (
	FeedItemVBTSet     = "vbt_set"
	FeedItemWorkoutLog = "workout_log"
)

type FeedItem struct {
	Type       string    `json:"type"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Exercise   string    `json:"exercise"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityFeed merges recent sensor sets and self-reports across the
// coach's roster, newest first, capped at 20 items.
func (a *Analyzer) ActivityFeed(ctx context.Context, coachID string, now time.Time) ([]FeedItem, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.activityFeed")
	defer span.End()

	cc, err := a.coachContext(ctx, coachID)
	if err != nil {
		return nil, err
	}

	playerIDs := make([]string, 0, len(cc.roster))
	names := make(map[string]string, len(cc.roster))
	for _, p := range cc.roster {
		playerIDs = append(playerIDs, p.ID)
		names[p.ID] = p.FullName()
	}

	summaries, err := a.summaries.ListSummariesForPlayersSince(ctx, playerIDs, now.AddDate(0, 0, -14))
	if err != nil {
		return nil, fmt.Errorf("list set summaries: %w", err)
	}
	logs, err := a.logs.ListRecentForPlayers(ctx, playerIDs, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}

	feed := make([]FeedItem, 0, len(summaries)+len(logs))
	for _, s := range summaries {
		feed = append(feed, FeedItem{
			Type:       FeedItemVBTSet,
			PlayerID:   s.PlayerID,
			PlayerName: names[s.PlayerID],
			Exercise:   s.Exercise,
			Detail:     fmt.Sprintf("%d reps @ %.2f m/s", s.RepCount, s.AvgVelocity),
			CreatedAt:  s.CreatedAt,
		})
	}
	for _, logRow := range logs {
		detail := fmt.Sprintf("%d sets", logRow.SetsCompleted)
		if logRow.WeightLbs != nil {
			detail = fmt.Sprintf("%d sets @ %.0f lbs", logRow.SetsCompleted, *logRow.WeightLbs)
		}
		feed = append(feed, FeedItem{
			Type:       FeedItemWorkoutLog,
			PlayerID:   logRow.PlayerID,
			PlayerName: names[logRow.PlayerID],
			Exercise:   logRow.ExerciseName,
			Detail:     detail,
			CreatedAt:  logRow.LoggedAt,
		})
	}

	sort.Slice(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	if len(feed) > feedLimit {
		feed = feed[:feedLimit]
	}

	return feed, nil
}

type DueWorkout struct {
	Assignment   workouts.Assignment `json:"assignment"`
	TemplateName string              `json:"template_name"`
	Eligible     int                 `json:"eligible"`
	Started      int                 `json:"started"`
}

type DueWorkouts struct {
	Overdue  []DueWorkout `json:"overdue"`
	Upcoming []DueWorkout `json:"upcoming"`
}

// DueWorkouts splits assignments due two weeks either side of now into
// overdue and upcoming, each with started/eligible counts.
func (a *Analyzer) DueWorkouts(ctx context.Context, coachID string, now time.Time) (*DueWorkouts, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.dueWorkouts")
	defer span.End()

	since := now.AddDate(0, 0, -14)
	until := now.AddDate(0, 0, 14)

	cc, err := a.coachContext(ctx, coachID)
	if err != nil {
		return nil, err
	}
	input, err := a.complianceInput(ctx, cc, since, until)
	if err != nil {
		return nil, err
	}

	rosterByTeam := players.PlayersByTeam(cc.roster)
	fallback := workouts.Window{Start: since, End: until}

	due := &DueWorkouts{
		Overdue:  []DueWorkout{},
		Upcoming: []DueWorkout{},
	}

	for _, assignment := range input.Assignments {
		template, err := a.templates.Get(ctx, assignment.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("get template: %w", err)
		}

		eligible := workouts.EligiblePlayers(assignment, rosterByTeam[assignment.TeamID], input.Membership)
		window := assignment.EffectiveWindow(fallback)

		started := 0
		for playerID := range eligible {
			if workouts.Started(assignment.ID, playerID, window, input.LogPairs, playerSummaries(input.Summaries, playerID)) {
				started++
			}
		}

		item := DueWorkout{
			Assignment:   assignment,
			TemplateName: template.Name,
			Eligible:     len(eligible),
			Started:      started,
		}
		if assignment.DueAt != nil && assignment.DueAt.Before(now) {
			due.Overdue = append(due.Overdue, item)
		} else {
			due.Upcoming = append(due.Upcoming, item)
		}
	}

	return due, nil
}

const (
	LeaderboardAvgVelocity  = "avg_velocity"
	LeaderboardPeakVelocity = "peak_velocity"
)

type LeaderboardEntry struct {
	PlayerID   string         `json:"player_id"`
	PlayerName string         `json:"player_name"`
	BestSet    vbt.SetSummary `json:"best_set"`
	Value      float64        `json:"value"`
}

// Leaderboard ranks a team's players by their best set on the chosen
// metric.
func (a *Analyzer) Leaderboard(ctx context.Context, teamID, metric string) ([]LeaderboardEntry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "dashboard.analyzer.leaderboard")
	defer span.End()

	summaries, err := a.summaries.ListSummariesForTeam(ctx, teamID, leaderboardFetchSize)
	if err != nil {
		return nil, fmt.Errorf("list team summaries: %w", err)
	}
	roster, err := a.roster.ListForTeams(ctx, []string{teamID})
	if err != nil {
		return nil, fmt.Errorf("list team roster: %w", err)
	}

	names := make(map[string]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.FullName()
	}

	metricValue := func(s vbt.SetSummary) float64 {
		if metric == LeaderboardPeakVelocity {
			return s.PeakVelocity
		}
		return s.AvgVelocity
	}

	best := map[string]vbt.SetSummary{}
	for _, s := range summaries {
		if s.Flagged {
			continue
		}
		current, ok := best[s.PlayerID]
		if !ok || metricValue(s) > metricValue(current) {
			best[s.PlayerID] = s
		}
	}

	entries := make([]LeaderboardEntry, 0, len(best))
	for playerID, s := range best {
		entries = append(entries, LeaderboardEntry{
			PlayerID:   playerID,
			PlayerName: names[playerID],
			BestSet:    s,
			Value:      metricValue(s),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})

	return entries, nil
}
