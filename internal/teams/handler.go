package teams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)


type teamsRepo interface {
	Add(ctx context.Context, t Team) (*Team, error)
	Get(ctx context.Context, id string) (*Team, error)
	ListForCoach(ctx context.Context, coachID string) ([]Team, error)
	Update(ctx context.Context, id, coachID string, u Update) (*Team, error)
	Delete(ctx context.Context, id, coachID string) error
}

type Handler struct {
	repo teamsRepo
}

func NewHandler(repo teamsRepo) *Handler {
	return &Handler{repo: repo}
}

type newTeamRequest struct {
	Name  string `json:"name"`
	Sport string `json:"sport"`
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "teams.handler.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "add team failed, invalid content type", http.StatusBadRequest)
		return
	}

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	var req newTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add team failed, unmarshal json params: %s", err)
		http.Error(w, "add team failed", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "error, team name empty", http.StatusBadRequest)
		return
	}
	if req.Sport == "" {
		req.Sport = "football"
	}

	added, err := handler.repo.Add(ctx, Team{
		CoachID: coachID,
		Name:    req.Name,
		Sport:   req.Sport,
	})
	if err != nil {
		log.Errorf("add team failed: %s", err)
		http.Error(w, "add team failed", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal added team: %s", err)
		http.Error(w, "add team failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "teams.handler.list")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	teams, err := handler.repo.ListForCoach(ctx, coachID)
	if err != nil {
		log.Errorf("list teams failed: %s", err)
		http.Error(w, "list teams failed", http.StatusInternalServerError)
		return
	}

	teamsJson, err := json.Marshal(teams)
	if err != nil {
		log.Errorf("marshal teams: %s", err)
		http.Error(w, "list teams failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, teamsJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "teams.handler.get")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	team, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		log.Errorf("get team %s failed: %s", id, err)
		http.Error(w, "get team failed", http.StatusInternalServerError)
		return
	}

	teamJson, err := json.Marshal(team)
	if err != nil {
		log.Errorf("marshal team: %s", err)
		http.Error(w, "get team failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, teamJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "teams.handler.update")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Errorf("update team failed, unmarshal json params: %s", err)
		http.Error(w, "update team failed", http.StatusBadRequest)
		return
	}

	updated, err := handler.repo.Update(ctx, id, coachID, u)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		log.Errorf("update team %s failed: %s", id, err)
		http.Error(w, "update team failed", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal updated team: %s", err)
		http.Error(w, "update team failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "teams.handler.delete")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.repo.Delete(ctx, id, coachID); err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			http.Error(w, "team not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete team %s failed: %s", id, err)
		http.Error(w, "delete team failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}
