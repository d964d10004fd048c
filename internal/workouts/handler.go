package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/players"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/metrics"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type templatesRepo interface {
	Add(ctx context.Context, t Template) (*Template, error)
	Get(ctx context.Context, id string) (*Template, error)
	ListForCoach(ctx context.Context, coachID string) ([]Template, error)
	Update(ctx context.Context, id, coachID string, u TemplateUpdate) (*Template, error)
	Delete(ctx context.Context, id, coachID string) error
}

type assignmentsRepo interface {
	Add(ctx context.Context, a Assignment, playerIDs []string) (*Assignment, error)
	ListForTeam(ctx context.Context, teamID string) ([]Assignment, error)
	UpdateStatus(ctx context.Context, id, status string) (*Assignment, error)
	Delete(ctx context.Context, id string) error
}

type progressService interface {
	ActiveWorkouts(ctx context.Context, playerID string) ([]ActiveWorkout, error)
	Progress(ctx context.Context, assignmentID, coachID string) (*AssignmentProgress, error)
	SubmitLogs(ctx context.Context, assignmentID, playerID string, entries []LogEntry) ([]ExerciseLog, error)
}

type Handler struct {
	templates   templatesRepo
	assignments assignmentsRepo
	service     progressService
	tracked     TrackedExercises
	metrics     *metrics.Manager
}

func NewHandler(
	templates templatesRepo,
	assignments assignmentsRepo,
	service progressService,
	tracked TrackedExercises,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		templates:   templates,
		assignments: assignments,
		service:     service,
		tracked:     tracked,
		metrics:     metrics,
	}
}

type newTemplateRequest struct {
	Sport       string  `json:"sport"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Content     Content `json:"content"`
}

func (handler *Handler) HandleAddTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.addTemplate")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "add template failed, invalid content type", http.StatusBadRequest)
		return
	}

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	var req newTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add template failed, unmarshal json params: %s", err)
		http.Error(w, "add template failed", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "error, template name empty", http.StatusBadRequest)
		return
	}
	if req.Sport == "" {
		req.Sport = "football"
	}
	if _, err := ParseContent(req.Content, handler.tracked); err != nil {
		http.Error(w, fmt.Sprintf("error, %s", err), http.StatusBadRequest)
		return
	}

	added, err := handler.templates.Add(ctx, Template{
		CoachID:     coachID,
		Sport:       req.Sport,
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		log.Errorf("add template failed: %s", err)
		http.Error(w, "add template failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, added, http.StatusCreated)
}

func (handler *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.listTemplates")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	templates, err := handler.templates.ListForCoach(ctx, coachID)
	if err != nil {
		log.Errorf("list templates failed: %s", err)
		http.Error(w, "list templates failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, templates, http.StatusOK)
}

func (handler *Handler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.getTemplate")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	template, err := handler.templates.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("get template %s failed: %s", id, err)
		http.Error(w, "get template failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, template, http.StatusOK)
}

func (handler *Handler) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.updateTemplate")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	var u TemplateUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Errorf("update template failed, unmarshal json params: %s", err)
		http.Error(w, "update template failed", http.StatusBadRequest)
		return
	}
	if u.Content != nil {
		if _, err := ParseContent(*u.Content, handler.tracked); err != nil {
			http.Error(w, fmt.Sprintf("error, %s", err), http.StatusBadRequest)
			return
		}
	}

	updated, err := handler.templates.Update(ctx, id, coachID, u)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("update template %s failed: %s", id, err)
		http.Error(w, "update template failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, updated, http.StatusOK)
}

func (handler *Handler) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.deleteTemplate")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.templates.Delete(ctx, id, coachID); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete template %s failed: %s", id, err)
		http.Error(w, "delete template failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}

type newAssignmentRequest struct {
	TeamID              string   `json:"team_id"`
	TemplateID          string   `json:"template_id"`
	TargetType          string   `json:"target_type"`
	TargetPositionGroup *string  `json:"target_position_group"`
	PlayerIDs           []string `json:"player_ids"`
	StartAt             *string  `json:"start_at"`
	DueAt               *string  `json:"due_at"`
	Notes               *string  `json:"notes"`
}

func (handler *Handler) HandleAddAssignment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.addAssignment")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "add assignment failed, invalid content type", http.StatusBadRequest)
		return
	}

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	var req newAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add assignment failed, unmarshal json params: %s", err)
		http.Error(w, "add assignment failed", http.StatusBadRequest)
		return
	}
	if req.TeamID == "" || req.TemplateID == "" {
		http.Error(w, "error, team id or template id empty", http.StatusBadRequest)
		return
	}
	if req.TargetType == "" {
		req.TargetType = TargetTeam
	}
	if req.TargetType == TargetPositionGroup && req.TargetPositionGroup == nil {
		http.Error(w, "error, target position group empty", http.StatusBadRequest)
		return
	}
	if req.TargetType == TargetPlayers && len(req.PlayerIDs) == 0 {
		http.Error(w, "error, player ids empty", http.StatusBadRequest)
		return
	}

	startAt, err := pkg.ParseTimestampPtr(req.StartAt)
	if err != nil {
		http.Error(w, "error, invalid start_at", http.StatusBadRequest)
		return
	}
	dueAt, err := pkg.ParseTimestampPtr(req.DueAt)
	if err != nil {
		http.Error(w, "error, invalid due_at", http.StatusBadRequest)
		return
	}

	added, err := handler.assignments.Add(ctx, Assignment{
		TeamID:              req.TeamID,
		TemplateID:          req.TemplateID,
		TargetType:          req.TargetType,
		TargetPositionGroup: req.TargetPositionGroup,
		StartAt:             startAt,
		DueAt:               dueAt,
		Status:              AssignmentStatusActive,
		Notes:               req.Notes,
		CreatedBy:           &coachID,
	}, req.PlayerIDs)
	if err != nil {
		log.Errorf("add assignment failed: %s", err)
		http.Error(w, "add assignment failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, added, http.StatusCreated)
}

func (handler *Handler) HandleListAssignments(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.listAssignments")
	defer span.End()

	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		http.Error(w, "error, team_id param empty", http.StatusBadRequest)
		return
	}

	assignments, err := handler.assignments.ListForTeam(ctx, teamID)
	if err != nil {
		log.Errorf("list assignments failed: %s", err)
		http.Error(w, "list assignments failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, assignments, http.StatusOK)
}

type assignmentStatusRequest struct {
	Status string `json:"status"`
}

func (handler *Handler) HandleUpdateAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.updateAssignmentStatus")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	var req assignmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update assignment status failed, unmarshal json params: %s", err)
		http.Error(w, "update assignment status failed", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case AssignmentStatusActive, AssignmentStatusCompleted, AssignmentStatusArchived:
	default:
		http.Error(w, "error, unknown status", http.StatusBadRequest)
		return
	}

	updated, err := handler.assignments.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			http.Error(w, "assignment not found", http.StatusNotFound)
			return
		}
		log.Errorf("update assignment %s status failed: %s", id, err)
		http.Error(w, "update assignment status failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, updated, http.StatusOK)
}

func (handler *Handler) HandleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.deleteAssignment")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			http.Error(w, "assignment not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete assignment %s failed: %s", id, err)
		http.Error(w, "delete assignment failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}

// HandleActiveWorkouts serves a player's active assignments with
// progress; the player app polls this.
func (handler *Handler) HandleActiveWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.activeWorkouts")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "error, player_id param empty", http.StatusBadRequest)
		return
	}

	active, err := handler.service.ActiveWorkouts(ctx, playerID)
	if err != nil {
		handler.writeAggregationError(w, "active workouts", err)
		return
	}

	writeJson(w, active, http.StatusOK)
}

// HandleProgress serves the coach's per-player completion grid for one
// assignment.
func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.progress")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	progress, err := handler.service.Progress(ctx, id, coachID)
	if err != nil {
		handler.writeAggregationError(w, "assignment progress", err)
		return
	}

	writeJson(w, progress, http.StatusOK)
}

type submitLogsRequest struct {
	AssignmentID string     `json:"assignment_id"`
	PlayerID     string     `json:"player_id"`
	Entries      []LogEntry `json:"entries"`
}

func (handler *Handler) HandleSubmitLogs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workouts.handler.submitLogs")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "submit logs failed, invalid content type", http.StatusBadRequest)
		return
	}

	var req submitLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("submit logs failed, unmarshal json params: %s", err)
		http.Error(w, "submit logs failed", http.StatusBadRequest)
		return
	}
	if req.AssignmentID == "" || req.PlayerID == "" {
		http.Error(w, "error, assignment id or player id empty", http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 {
		http.Error(w, "error, no log entries", http.StatusBadRequest)
		return
	}
	for _, entry := range req.Entries {
		if strings.TrimSpace(entry.ExerciseName) == "" {
			http.Error(w, "error, exercise name empty", http.StatusBadRequest)
			return
		}
		if entry.SetsCompleted < 0 {
			http.Error(w, "error, negative sets completed", http.StatusBadRequest)
			return
		}
	}

	saved, err := handler.service.SubmitLogs(ctx, req.AssignmentID, req.PlayerID, req.Entries)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			http.Error(w, "assignment not found", http.StatusNotFound)
			return
		}
		log.Errorf("submit logs failed: %s", err)
		http.Error(w, "submit logs failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutLogs.Inc()

	writeJson(w, saved, http.StatusOK)
}

// writeAggregationError maps the progress paths' failures: missing
// rows to 404, broken template content to 400, and storage trouble to
// 503 so clients back off instead of retrying hot.
func (handler *Handler) writeAggregationError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrTemplateNotFound),
		errors.Is(err, players.ErrPlayerNotFound),
		errors.Is(err, teams.ErrTeamNotFound):
		http.Error(w, fmt.Sprintf("%s failed, not found", what), http.StatusNotFound)
	case errors.Is(err, ErrInvalidTemplate):
		http.Error(w, fmt.Sprintf("%s failed, %s", what, err), http.StatusBadRequest)
	default:
		log.Errorf("%s failed: %s", what, err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	}
}

func writeJson(w http.ResponseWriter, payload any, statusCode int) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payloadJson, statusCode)
}
