package testmetrics

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


type resultsRepo interface {
	Upsert(ctx context.Context, res Result) (*Result, error)
	ListForPlayer(ctx context.Context, playerID string) ([]Result, error)
	ListForTeam(ctx context.Context, teamID string) ([]Result, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	repo resultsRepo
}

func NewHandler(repo resultsRepo) *Handler {
	return &Handler{repo: repo}
}

type upsertResultRequest struct {
	PlayerID   string  `json:"player_id"`
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testmetrics.handler.upsert")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "save testing result failed, invalid content type", http.StatusBadRequest)
		return
	}

	var req upsertResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("save testing result failed, unmarshal json params: %s", err)
		http.Error(w, "save testing result failed", http.StatusBadRequest)
		return
	}
	req.MetricName = strings.TrimSpace(req.MetricName)
	if req.PlayerID == "" || req.MetricName == "" {
		http.Error(w, "error, player id or metric name empty", http.StatusBadRequest)
		return
	}

	upserted, err := handler.repo.Upsert(ctx, Result{
		PlayerID:   req.PlayerID,
		MetricName: req.MetricName,
		Value:      req.Value,
		Unit:       req.Unit,
	})
	if err != nil {
		log.Errorf("save testing result failed: %s", err)
		http.Error(w, "save testing result failed", http.StatusInternalServerError)
		return
	}

	upsertedJson, err := json.Marshal(upserted)
	if err != nil {
		log.Errorf("marshal testing result: %s", err)
		http.Error(w, "save testing result failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, upsertedJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testmetrics.handler.list")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	teamID := r.URL.Query().Get("team_id")

	var results []Result
	var err error
	switch {
	case playerID != "":
		results, err = handler.repo.ListForPlayer(ctx, playerID)
	case teamID != "":
		results, err = handler.repo.ListForTeam(ctx, teamID)
	default:
		http.Error(w, "error, player_id or team_id param required", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Errorf("list testing results failed: %s", err)
		http.Error(w, "list testing results failed", http.StatusInternalServerError)
		return
	}

	resultsJson, err := json.Marshal(results)
	if err != nil {
		log.Errorf("marshal testing results: %s", err)
		http.Error(w, "list testing results failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultsJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "testmetrics.handler.delete")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrResultNotFound) {
			http.Error(w, "testing result not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete testing result %s failed: %s", id, err)
		http.Error(w, "delete testing result failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}
