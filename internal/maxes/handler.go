package maxes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)


type maxesRepo interface {
	Upsert(ctx context.Context, m PlayerMax) (*PlayerMax, error)
	ListForPlayer(ctx context.Context, playerID string) ([]PlayerMax, error)
	ListForTeam(ctx context.Context, teamID string) ([]PlayerMax, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	repo maxesRepo
}

func NewHandler(repo maxesRepo) *Handler {
	return &Handler{repo: repo}
}

type upsertMaxRequest struct {
	PlayerID string  `json:"player_id"`
	Exercise string  `json:"exercise"`
	Weight   float64 `json:"weight"`
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "maxes.handler.upsert")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "save max failed, invalid content type", http.StatusBadRequest)
		return
	}

	var req upsertMaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("save max failed, unmarshal json params: %s", err)
		http.Error(w, "save max failed", http.StatusBadRequest)
		return
	}
	req.Exercise = strings.TrimSpace(req.Exercise)
	if req.PlayerID == "" || req.Exercise == "" {
		http.Error(w, "error, player id or exercise empty", http.StatusBadRequest)
		return
	}
	if req.Weight <= 0 {
		http.Error(w, "error, weight must be positive", http.StatusBadRequest)
		return
	}

	upserted, err := handler.repo.Upsert(ctx, PlayerMax{
		PlayerID: req.PlayerID,
		Exercise: req.Exercise,
		Weight:   req.Weight,
	})
	if err != nil {
		log.Errorf("save max failed: %s", err)
		http.Error(w, "save max failed", http.StatusInternalServerError)
		return
	}

	upsertedJson, err := json.Marshal(upserted)
	if err != nil {
		log.Errorf("marshal saved max: %s", err)
		http.Error(w, "save max failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, upsertedJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "maxes.handler.list")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	teamID := r.URL.Query().Get("team_id")

	var maxes []PlayerMax
	var err error
	switch {
	case playerID != "":
		maxes, err = handler.repo.ListForPlayer(ctx, playerID)
	case teamID != "":
		maxes, err = handler.repo.ListForTeam(ctx, teamID)
	default:
		http.Error(w, "error, player_id or team_id param required", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Errorf("list maxes failed: %s", err)
		http.Error(w, "list maxes failed", http.StatusInternalServerError)
		return
	}

	maxesJson, err := json.Marshal(maxes)
	if err != nil {
		log.Errorf("marshal maxes: %s", err)
		http.Error(w, "list maxes failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, maxesJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "maxes.handler.delete")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrMaxNotFound) {
			http.Error(w, "player max not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete max %s failed: %s", id, err)
		http.Error(w, "delete max failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}
