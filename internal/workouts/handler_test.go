package workouts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type templatesRepoMock struct {
	templates map[string]*Template
}

func newTemplatesRepoMock() *templatesRepoMock {
	return &templatesRepoMock{templates: make(map[string]*Template)}
}

func (m *templatesRepoMock) Add(_ context.Context, t Template) (*Template, error) {
	t.ID = gofakeit.UUID()
	m.templates[t.ID] = &t
	return &t, nil
}

func (m *templatesRepoMock) Get(_ context.Context, id string) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (m *templatesRepoMock) ListForCoach(_ context.Context, coachID string) ([]Template, error) {
	var owned []Template
	for _, t := range m.templates {
		if t.CoachID == coachID {
			owned = append(owned, *t)
		}
	}
	return owned, nil
}

func (m *templatesRepoMock) Update(_ context.Context, id, coachID string, u TemplateUpdate) (*Template, error) {
	t, ok := m.templates[id]
	if !ok || t.CoachID != coachID {
		return nil, ErrTemplateNotFound
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Content != nil {
		t.Content = *u.Content
	}
	return t, nil
}

func (m *templatesRepoMock) Delete(_ context.Context, id, coachID string) error {
	t, ok := m.templates[id]
	if !ok || t.CoachID != coachID {
		return ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

type assignmentsRepoMock struct {
	assignments    map[string]*Assignment
	addedPlayerIDs []string
}

func newAssignmentsRepoMock() *assignmentsRepoMock {
	return &assignmentsRepoMock{assignments: make(map[string]*Assignment)}
}

func (m *assignmentsRepoMock) Add(_ context.Context, a Assignment, playerIDs []string) (*Assignment, error) {
	a.ID = gofakeit.UUID()
	m.assignments[a.ID] = &a
	m.addedPlayerIDs = playerIDs
	return &a, nil
}

func (m *assignmentsRepoMock) ListForTeam(_ context.Context, teamID string) ([]Assignment, error) {
	var forTeam []Assignment
	for _, a := range m.assignments {
		if a.TeamID == teamID {
			forTeam = append(forTeam, *a)
		}
	}
	return forTeam, nil
}

func (m *assignmentsRepoMock) UpdateStatus(_ context.Context, id, status string) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	a.Status = status
	return a, nil
}

func (m *assignmentsRepoMock) Delete(_ context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return ErrAssignmentNotFound
	}
	delete(m.assignments, id)
	return nil
}

type progressServiceMock struct {
	active      []ActiveWorkout
	progress    *AssignmentProgress
	progressErr error
	submitted   []LogEntry
}

func (m *progressServiceMock) ActiveWorkouts(_ context.Context, _ string) ([]ActiveWorkout, error) {
	return m.active, nil
}

func (m *progressServiceMock) Progress(_ context.Context, _, _ string) (*AssignmentProgress, error) {
	if m.progressErr != nil {
		return nil, m.progressErr
	}
	return m.progress, nil
}

func (m *progressServiceMock) SubmitLogs(_ context.Context, assignmentID, playerID string, entries []LogEntry) ([]ExerciseLog, error) {
	if assignmentID == "missing" {
		return nil, ErrAssignmentNotFound
	}
	m.submitted = entries
	saved := make([]ExerciseLog, 0, len(entries))
	for _, e := range entries {
		saved = append(saved, ExerciseLog{
			ID:           gofakeit.UUID(),
			AssignmentID: assignmentID,
			PlayerID:     playerID,
			ExerciseName: e.ExerciseName,
		})
	}
	return saved, nil
}

func newTestHandler(
	templates *templatesRepoMock,
	assignments *assignmentsRepoMock,
	service *progressServiceMock,
) *Handler {
	return NewHandler(templates, assignments, service, DefaultTrackedExercises(), metrics.NewTestManager())
}

func coachRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, target, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.WithUserID(req.Context(), "coach1"))
}

func TestHandler_HandleAddTemplate(t *testing.T) {
	templates := newTemplatesRepoMock()
	handler := newTestHandler(templates, newAssignmentsRepoMock(), &progressServiceMock{})

	body := `{
		"name": "Lower Day",
		"content": {
			"version": 2,
			"exercises": [
				{"exerciseName": "Back Squat", "setGroups": [{"sets": 3, "reps": 5}]}
			]
		}
	}`

	rec := httptest.NewRecorder()
	handler.HandleAddTemplate(rec, coachRequest(t, "POST", "", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var added Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "coach1", added.CoachID)
	assert.Equal(t, "football", added.Sport)
	assert.Equal(t, "Lower Day", added.Name)
	require.Len(t, added.Content.Exercises, 1)
}

func TestHandler_HandleAddTemplate_InvalidContent(t *testing.T) {
	handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), &progressServiceMock{})

	body := `{
		"name": "Broken",
		"content": {
			"version": 2,
			"exercises": [{"exerciseName": "Back Squat", "setGroups": [{"reps": 5}]}]
		}
	}`

	rec := httptest.NewRecorder()
	handler.HandleAddTemplate(rec, coachRequest(t, "POST", "", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid template content")
}

func TestHandler_HandleAddTemplate_NoAuthUser(t *testing.T) {
	handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), &progressServiceMock{})

	req, err := http.NewRequest("POST", "", bytes.NewBufferString(`{"name":"Lower Day"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.HandleAddTemplate(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_HandleAddAssignment(t *testing.T) {
	assignments := newAssignmentsRepoMock()
	handler := newTestHandler(newTemplatesRepoMock(), assignments, &progressServiceMock{})

	body := `{
		"team_id": "t1",
		"template_id": "tmpl1",
		"target_type": "players",
		"player_ids": ["p1", "p2"],
		"due_at": "2025-04-01T00:00:00Z"
	}`

	rec := httptest.NewRecorder()
	handler.HandleAddAssignment(rec, coachRequest(t, "POST", "", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var added Assignment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, AssignmentStatusActive, added.Status)
	assert.Equal(t, TargetPlayers, added.TargetType)
	require.NotNil(t, added.DueAt)
	require.NotNil(t, added.CreatedBy)
	assert.Equal(t, "coach1", *added.CreatedBy)
	assert.Equal(t, []string{"p1", "p2"}, assignments.addedPlayerIDs)
}

func TestHandler_HandleAddAssignment_Validation(t *testing.T) {
	handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), &progressServiceMock{})

	for name, body := range map[string]string{
		"no team":                `{"template_id":"tmpl1"}`,
		"no template":            `{"team_id":"t1"}`,
		"group without group":    `{"team_id":"t1","template_id":"tmpl1","target_type":"position_group"}`,
		"players without ids":    `{"team_id":"t1","template_id":"tmpl1","target_type":"players"}`,
		"unparseable timestamps": `{"team_id":"t1","template_id":"tmpl1","due_at":"next tuesday"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleAddAssignment(rec, coachRequest(t, "POST", "", body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_HandleUpdateAssignmentStatus(t *testing.T) {
	assignments := newAssignmentsRepoMock()
	added, err := assignments.Add(context.Background(), Assignment{
		TeamID: "t1", TemplateID: "tmpl1", TargetType: TargetTeam, Status: AssignmentStatusActive,
	}, nil)
	require.NoError(t, err)

	handler := newTestHandler(newTemplatesRepoMock(), assignments, &progressServiceMock{})
	router := mux.NewRouter()
	router.HandleFunc("/workouts/assignments/{id}/status", handler.HandleUpdateAssignmentStatus).Methods("PUT")

	doUpdate := func(id, body string) *httptest.ResponseRecorder {
		req, err := http.NewRequest("PUT", "/workouts/assignments/"+id+"/status", bytes.NewBufferString(body))
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := doUpdate(added.ID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AssignmentStatusCompleted, assignments.assignments[added.ID].Status)

	assert.Equal(t, http.StatusBadRequest, doUpdate(added.ID, `{"status":"paused"}`).Code)
	assert.Equal(t, http.StatusNotFound, doUpdate("no-such-id", `{"status":"archived"}`).Code)
}

func TestHandler_HandleSubmitLogs(t *testing.T) {
	service := &progressServiceMock{}
	handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), service)

	body := `{
		"assignment_id": "a1",
		"player_id": "p1",
		"entries": [
			{"exercise_name": "Nordic Curl", "sets_completed": 3, "weight_lbs": 45},
			{"exercise_name": "Box Jump", "sets_completed": 4}
		]
	}`

	rec := httptest.NewRecorder()
	handler.HandleSubmitLogs(rec, coachRequest(t, "POST", "", body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, service.submitted, 2)

	var saved []ExerciseLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.Len(t, saved, 2)
	assert.Equal(t, "Nordic Curl", saved[0].ExerciseName)
}

func TestHandler_HandleSubmitLogs_Validation(t *testing.T) {
	handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), &progressServiceMock{})

	for name, tc := range map[string]struct {
		body     string
		expected int
	}{
		"no ids": {
			body:     `{"entries":[{"exercise_name":"Box Jump","sets_completed":1}]}`,
			expected: http.StatusBadRequest,
		},
		"no entries": {
			body:     `{"assignment_id":"a1","player_id":"p1","entries":[]}`,
			expected: http.StatusBadRequest,
		},
		"empty exercise name": {
			body:     `{"assignment_id":"a1","player_id":"p1","entries":[{"exercise_name":"  ","sets_completed":1}]}`,
			expected: http.StatusBadRequest,
		},
		"negative sets": {
			body:     `{"assignment_id":"a1","player_id":"p1","entries":[{"exercise_name":"Box Jump","sets_completed":-1}]}`,
			expected: http.StatusBadRequest,
		},
		"unknown assignment": {
			body:     `{"assignment_id":"missing","player_id":"p1","entries":[{"exercise_name":"Box Jump","sets_completed":1}]}`,
			expected: http.StatusNotFound,
		},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleSubmitLogs(rec, coachRequest(t, "POST", "", tc.body))
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestHandler_HandleProgress_ErrorMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err      error
		expected int
	}{
		"assignment missing": {ErrAssignmentNotFound, http.StatusNotFound},
		"template missing":   {ErrTemplateNotFound, http.StatusNotFound},
		"broken template":    {ErrInvalidTemplate, http.StatusBadRequest},
		"storage down":       {errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			service := &progressServiceMock{progressErr: tc.err}
			handler := newTestHandler(newTemplatesRepoMock(), newAssignmentsRepoMock(), service)

			router := mux.NewRouter()
			router.HandleFunc("/workouts/assignments/{id}/progress", handler.HandleProgress).Methods("GET")

			req, err := http.NewRequest("GET", "/workouts/assignments/a1/progress", nil)
			require.NoError(t, err)
			req = req.WithContext(auth.WithUserID(req.Context(), "coach1"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.expected, rec.Code)
			if tc.expected == http.StatusServiceUnavailable {
				assert.Contains(t, rec.Body.String(), "database unavailable")
			}
		})
	}
}
