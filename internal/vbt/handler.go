package vbt

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/metrics"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)


const defaultListLimit = 50

type vbtRepo interface {
	SaveIngest(ctx context.Context, rawSet RawSet, reps []Rep, summary SetSummary) (*SetSummary, error)
	ListSummariesForPlayer(ctx context.Context, playerID string, limit int) ([]SetSummary, error)
	ListSummariesForTeam(ctx context.Context, teamID string, limit int) ([]SetSummary, error)
	ListRepsForSet(ctx context.Context, rawSetID string) ([]Rep, error)
	ListRecentRepsForPlayer(ctx context.Context, playerID string, limit int) ([]Rep, error)
	ListFlaggedRepsForPlayer(ctx context.Context, playerID string, limit int) ([]Rep, error)
	BestRepsPerExercise(ctx context.Context, playerID string) ([]Rep, error)
}

type Handler struct {
	repo    vbtRepo
	metrics *metrics.Manager
}

func NewHandler(repo vbtRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

type deviceSetRequest struct {
	PlayerID     string          `json:"player_id"`
	TeamID       string          `json:"team_id"`
	Exercise     string          `json:"exercise"`
	DeviceID     *string         `json:"device_id"`
	Estimated1RM *float64        `json:"estimated_1rm"`
	Samples      json.RawMessage `json:"samples"`
	Reps         []RepIngest     `json:"reps"`
}

// HandleDeviceIngest takes one finished set from a sensor, computes the
// summary and stores everything in one go. Devices cannot hold a token,
// so this path is rate limited instead of authenticated.
func (handler *Handler) HandleDeviceIngest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.deviceIngest")
	defer span.End()

	var req deviceSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("device ingest failed, unmarshal json params: %s", err)
		http.Error(w, "device ingest failed", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.TeamID == "" || req.Exercise == "" {
		http.Error(w, "error, player id, team id or exercise empty", http.StatusBadRequest)
		return
	}
	if len(req.Reps) == 0 {
		http.Error(w, "error, no reps in set", http.StatusBadRequest)
		return
	}
	if len(req.Samples) == 0 {
		req.Samples = json.RawMessage(`[]`)
	}

	stats := summarize(req.Reps)
	losses := velocityLossPerRep(req.Reps)

	reps := make([]Rep, 0, len(req.Reps))
	for i, ingest := range req.Reps {
		flagged, reason := flagRep(ingest)
		rep := Rep{
			RepNumber:          ingest.RepNumber,
			MeanVelocity:       ingest.MeanVelocity,
			PeakVelocity:       ingest.PeakVelocity,
			EccentricDuration:  ingest.EccentricDuration,
			ConcentricDuration: ingest.ConcentricDuration,
			RomMeters:          ingest.RomMeters,
			TimeToPeakVel:      ingest.TimeToPeakVel,
			VelocityLossPct:    losses[i],
			BarPathDeviation:   ingest.BarPathDeviation,
			Flagged:            flagged,
			Samples:            json.RawMessage(`[]`),
		}
		if flagged {
			rep.FlagReason = &reason
		}
		reps = append(reps, rep)
	}

	saved, err := handler.repo.SaveIngest(ctx,
		RawSet{
			PlayerID: req.PlayerID,
			TeamID:   req.TeamID,
			Exercise: req.Exercise,
			DeviceID: req.DeviceID,
			Samples:  req.Samples,
		},
		reps,
		SetSummary{
			RepCount:     stats.repCount,
			AvgVelocity:  stats.avgVelocity,
			PeakVelocity: stats.peakVelocity,
			VelocityLoss: stats.velocityLoss,
			Estimated1RM: req.Estimated1RM,
			Flagged:      stats.flagged,
			FlagReason:   stats.flagReason,
		},
	)
	if err != nil {
		log.Errorf("device ingest failed: %s", err)
		http.Error(w, "device ingest failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterDeviceSets.Inc()

	savedJson, err := json.Marshal(saved)
	if err != nil {
		log.Errorf("marshal set summary: %s", err)
		http.Error(w, "device ingest failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, savedJson, http.StatusCreated)
}

func (handler *Handler) HandleListSummaries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.listSummaries")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	teamID := r.URL.Query().Get("team_id")
	limit := listLimit(r)

	var summaries []SetSummary
	var err error
	switch {
	case playerID != "":
		summaries, err = handler.repo.ListSummariesForPlayer(ctx, playerID, limit)
	case teamID != "":
		summaries, err = handler.repo.ListSummariesForTeam(ctx, teamID, limit)
	default:
		http.Error(w, "error, player_id or team_id param required", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Errorf("list set summaries failed: %s", err)
		http.Error(w, "list set summaries failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, summaries)
}

func (handler *Handler) HandleListSetReps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.listSetReps")
	defer span.End()

	vars := mux.Vars(r)
	rawSetID := vars["id"]

	reps, err := handler.repo.ListRepsForSet(ctx, rawSetID)
	if err != nil {
		log.Errorf("list set reps failed: %s", err)
		http.Error(w, "list set reps failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, reps)
}

func (handler *Handler) HandleRecentReps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.recentReps")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "error, player_id param empty", http.StatusBadRequest)
		return
	}

	reps, err := handler.repo.ListRecentRepsForPlayer(ctx, playerID, listLimit(r))
	if err != nil {
		log.Errorf("list recent reps failed: %s", err)
		http.Error(w, "list recent reps failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, reps)
}

func (handler *Handler) HandleFlaggedReps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.flaggedReps")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "error, player_id param empty", http.StatusBadRequest)
		return
	}

	reps, err := handler.repo.ListFlaggedRepsForPlayer(ctx, playerID, listLimit(r))
	if err != nil {
		log.Errorf("list flagged reps failed: %s", err)
		http.Error(w, "list flagged reps failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, reps)
}

// HandlePersonalRecords returns a player's fastest rep per exercise.
func (handler *Handler) HandlePersonalRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "vbt.handler.personalRecords")
	defer span.End()

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "error, player_id param empty", http.StatusBadRequest)
		return
	}

	reps, err := handler.repo.BestRepsPerExercise(ctx, playerID)
	if err != nil {
		log.Errorf("list personal records failed: %s", err)
		http.Error(w, "list personal records failed", http.StatusInternalServerError)
		return
	}

	writeJson(w, reps)
}

func listLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}

func writeJson(w http.ResponseWriter, payload any) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payloadJson, http.StatusOK)
}
