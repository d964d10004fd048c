package workouts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/vbt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	m.Run()
	goleak.VerifyTestMain(m)
}

type templatesGetterMock struct {
	templates map[string]*Template
}

func (m *templatesGetterMock) Get(_ context.Context, id string) (*Template, error) {
	template, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

type assignmentsReaderMock struct {
	assignments map[string]*Assignment
	membership  map[string]PlayerIDSet
}

func (m *assignmentsReaderMock) Get(_ context.Context, id string) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (m *assignmentsReaderMock) ListActiveForTeam(_ context.Context, teamID string) ([]Assignment, error) {
	var active []Assignment
	for _, a := range m.assignments {
		if a.TeamID == teamID && a.Status == AssignmentStatusActive {
			active = append(active, *a)
		}
	}
	return active, nil
}

func (m *assignmentsReaderMock) Membership(_ context.Context, _ []string) (map[string]PlayerIDSet, error) {
	return m.membership, nil
}

type logsReadWriterMock struct {
	logs     []ExerciseLog
	upserted []ExerciseLog
}

func (m *logsReadWriterMock) Upsert(_ context.Context, logRow ExerciseLog) (*ExerciseLog, error) {
	logRow.ID = "log-id"
	logRow.LoggedAt = time.Now()
	m.upserted = append(m.upserted, logRow)
	return &logRow, nil
}

func (m *logsReadWriterMock) ListForAssignmentPlayer(_ context.Context, assignmentID, playerID string) ([]ExerciseLog, error) {
	var matched []ExerciseLog
	for _, l := range m.logs {
		if l.AssignmentID == assignmentID && l.PlayerID == playerID {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

type summariesReaderMock struct {
	summaries []vbt.SetSummary
}

func (m *summariesReaderMock) ListSummariesForPlayersSince(_ context.Context, playerIDs []string, since time.Time) ([]vbt.SetSummary, error) {
	wanted := map[string]struct{}{}
	for _, id := range playerIDs {
		wanted[id] = struct{}{}
	}
	var matched []vbt.SetSummary
	for _, s := range m.summaries {
		if _, ok := wanted[s.PlayerID]; !ok {
			continue
		}
		if s.CreatedAt.Before(since) {
			continue
		}
		matched = append(matched, s)
	}
	return matched, nil
}

type rosterReaderMock struct {
	players map[string]*players.Player
}

func (m *rosterReaderMock) Get(_ context.Context, id string) (*players.Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, players.ErrPlayerNotFound
	}
	return p, nil
}

func (m *rosterReaderMock) ListForTeam(_ context.Context, teamID string) ([]players.Player, error) {
	var roster []players.Player
	for _, p := range m.players {
		if p.TeamID == teamID {
			roster = append(roster, *p)
		}
	}
	return roster, nil
}

type teamsGuardMock struct {
	coachID string
}

func (m *teamsGuardMock) GetForCoach(_ context.Context, id, coachID string) (*teams.Team, error) {
	if coachID != m.coachID {
		return nil, teams.ErrTeamNotFound
	}
	return &teams.Team{ID: id, CoachID: coachID, Name: "Varsity"}, nil
}

func squatTemplate(id string) *Template {
	return &Template{
		ID:   id,
		Name: "Lower Day",
		Content: Content{
			Version: 2,
			Exercises: []Exercise{
				{Name: "Back Squat", SetGroups: []SetGroup{{Sets: intPtr(5)}}},
				{Name: "Nordic Curl", SetGroups: []SetGroup{{Sets: intPtr(3)}}},
			},
		},
	}
}

func newTestService(
	templates *templatesGetterMock,
	assignments *assignmentsReaderMock,
	logs *logsReadWriterMock,
	summaries *summariesReaderMock,
	roster *rosterReaderMock,
) *Service {
	return NewService(
		templates,
		assignments,
		logs,
		summaries,
		roster,
		&teamsGuardMock{coachID: "coach1"},
		DefaultTrackedExercises(),
	)
}

func TestService_ActiveWorkouts(t *testing.T) {
	createdAt := time.Now().Add(-48 * time.Hour)

	templates := &templatesGetterMock{templates: map[string]*Template{
		"tmpl1": squatTemplate("tmpl1"),
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {
				ID: "a1", TeamID: "t1", TemplateID: "tmpl1",
				TargetType: TargetTeam, Status: AssignmentStatusActive,
				CreatedAt: createdAt,
			},
			"archived": {
				ID: "archived", TeamID: "t1", TemplateID: "tmpl1",
				TargetType: TargetTeam, Status: AssignmentStatusArchived,
				CreatedAt: createdAt,
			},
		},
	}
	logs := &logsReadWriterMock{logs: []ExerciseLog{
		{AssignmentID: "a1", PlayerID: "p1", ExerciseName: "Nordic Curl", SetsCompleted: 2},
	}}
	summaries := &summariesReaderMock{summaries: []vbt.SetSummary{
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: createdAt.Add(time.Hour)},
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: createdAt.Add(2 * time.Hour)},
	}}
	roster := &rosterReaderMock{players: map[string]*players.Player{
		"p1": {ID: "p1", TeamID: "t1", FirstName: "Miles", LastName: "Carter"},
	}}

	service := newTestService(templates, assignments, logs, summaries, roster)

	active, err := service.ActiveWorkouts(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a1", active[0].Assignment.ID)
	assert.Equal(t, "Lower Day", active[0].TemplateName)

	require.Len(t, active[0].Exercises, 2)
	assert.Equal(t, 2, active[0].Exercises[0].SetsCompleted)
	assert.Equal(t, 2, active[0].Exercises[1].SetsCompleted)
}

func TestService_ActiveWorkouts_SkipsBrokenTemplate(t *testing.T) {
	createdAt := time.Now().Add(-time.Hour)

	templates := &templatesGetterMock{templates: map[string]*Template{
		"ok":     squatTemplate("ok"),
		"broken": {ID: "broken", Name: "Broken", Content: Content{Legacy: []LegacyExercise{{Name: "Squat"}}}},
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {ID: "a1", TeamID: "t1", TemplateID: "ok", TargetType: TargetTeam, Status: AssignmentStatusActive, CreatedAt: createdAt},
			"a2": {ID: "a2", TeamID: "t1", TemplateID: "broken", TargetType: TargetTeam, Status: AssignmentStatusActive, CreatedAt: createdAt},
		},
	}
	roster := &rosterReaderMock{players: map[string]*players.Player{
		"p1": {ID: "p1", TeamID: "t1"},
	}}

	service := newTestService(templates, assignments, &logsReadWriterMock{}, &summariesReaderMock{}, roster)

	active, err := service.ActiveWorkouts(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a1", active[0].Assignment.ID)
}

func TestService_ActiveWorkouts_RespectsTargeting(t *testing.T) {
	createdAt := time.Now().Add(-time.Hour)

	templates := &templatesGetterMock{templates: map[string]*Template{
		"tmpl1": squatTemplate("tmpl1"),
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {ID: "a1", TeamID: "t1", TemplateID: "tmpl1", TargetType: TargetPlayers, Status: AssignmentStatusActive, CreatedAt: createdAt},
		},
		membership: map[string]PlayerIDSet{
			"a1": {"someone-else": {}},
		},
	}
	roster := &rosterReaderMock{players: map[string]*players.Player{
		"p1": {ID: "p1", TeamID: "t1"},
	}}

	service := newTestService(templates, assignments, &logsReadWriterMock{}, &summariesReaderMock{}, roster)

	active, err := service.ActiveWorkouts(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestService_Progress(t *testing.T) {
	createdAt := time.Now().Add(-72 * time.Hour)

	templates := &templatesGetterMock{templates: map[string]*Template{
		"tmpl1": squatTemplate("tmpl1"),
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {
				ID: "a1", TeamID: "t1", TemplateID: "tmpl1",
				TargetType: TargetTeam, Status: AssignmentStatusActive,
				CreatedAt: createdAt,
			},
		},
	}
	logs := &logsReadWriterMock{logs: []ExerciseLog{
		{AssignmentID: "a1", PlayerID: "p2", ExerciseName: "Nordic Curl", SetsCompleted: 3},
	}}
	summaries := &summariesReaderMock{summaries: []vbt.SetSummary{
		{PlayerID: "p1", Exercise: "Back Squat", CreatedAt: createdAt.Add(time.Hour)},
	}}
	roster := &rosterReaderMock{players: map[string]*players.Player{
		"p1": {ID: "p1", TeamID: "t1", FirstName: "Miles", LastName: "Carter", PositionGroup: players.PositionGroupPower},
		"p2": {ID: "p2", TeamID: "t1", FirstName: "Jalen", LastName: "Reed", PositionGroup: players.PositionGroupSkill},
	}}

	service := newTestService(templates, assignments, logs, summaries, roster)

	progress, err := service.Progress(context.Background(), "a1", "coach1")
	require.NoError(t, err)
	assert.Equal(t, "Lower Day", progress.TemplateName)
	require.Len(t, progress.Players, 2)

	byID := map[string]PlayerProgress{}
	for _, p := range progress.Players {
		byID[p.PlayerID] = p
	}

	p1 := byID["p1"]
	assert.Equal(t, "Miles Carter", p1.PlayerName)
	assert.True(t, p1.Started)
	require.Len(t, p1.Exercises, 2)
	assert.Equal(t, 1, p1.Exercises[0].SetsCompleted)

	p2 := byID["p2"]
	assert.True(t, p2.Started)
	assert.Equal(t, 3, p2.Exercises[1].SetsCompleted)
}

func TestService_Progress_WrongCoach(t *testing.T) {
	templates := &templatesGetterMock{templates: map[string]*Template{
		"tmpl1": squatTemplate("tmpl1"),
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {ID: "a1", TeamID: "t1", TemplateID: "tmpl1", TargetType: TargetTeam},
		},
	}

	service := newTestService(templates, assignments, &logsReadWriterMock{}, &summariesReaderMock{}, &rosterReaderMock{})

	_, err := service.Progress(context.Background(), "a1", "not-their-coach")
	require.Error(t, err)
	assert.True(t, errors.Is(err, teams.ErrTeamNotFound))
}

func TestService_Progress_BrokenTemplate(t *testing.T) {
	templates := &templatesGetterMock{templates: map[string]*Template{
		"broken": {ID: "broken", Content: Content{Legacy: []LegacyExercise{{Name: ""}}}},
	}}
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {ID: "a1", TeamID: "t1", TemplateID: "broken", TargetType: TargetTeam},
		},
	}

	service := newTestService(templates, assignments, &logsReadWriterMock{}, &summariesReaderMock{}, &rosterReaderMock{})

	_, err := service.Progress(context.Background(), "a1", "coach1")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestService_SubmitLogs(t *testing.T) {
	assignments := &assignmentsReaderMock{
		assignments: map[string]*Assignment{
			"a1": {ID: "a1", TeamID: "t1", TargetType: TargetTeam},
		},
	}
	logs := &logsReadWriterMock{}

	service := newTestService(&templatesGetterMock{}, assignments, logs, &summariesReaderMock{}, &rosterReaderMock{})

	weight := 185.0
	saved, err := service.SubmitLogs(context.Background(), "a1", "p1", []LogEntry{
		{ExerciseName: "Nordic Curl", SetsCompleted: 3, WeightLbs: &weight},
		{ExerciseName: "Box Jump", SetsCompleted: 4},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Len(t, logs.upserted, 2)
	assert.Equal(t, "Nordic Curl", logs.upserted[0].ExerciseName)
	assert.Equal(t, "p1", logs.upserted[0].PlayerID)

	_, err = service.SubmitLogs(context.Background(), "nope", "p1", nil)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}
