package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	log "github.com/sirupsen/logrus"
)

const defaultRangeDays = 7

type Handler struct {
	analyzer *Analyzer
}

func NewHandler(analyzer *Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.stats")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	stats, err := handler.analyzer.Stats(ctx, coachID, time.Now())
	if err != nil {
		log.Errorf("dashboard stats failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, stats)
}

func (handler *Handler) HandleCompliance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.compliance")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	since, until, err := rangeParams(r)
	if err != nil {
		http.Error(w, "error, invalid since/until params", http.StatusBadRequest)
		return
	}

	report, err := handler.analyzer.Compliance(ctx, coachID, since, until)
	if err != nil {
		log.Errorf("dashboard compliance failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, report)
}

func (handler *Handler) HandleTeamOverviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.teamOverviews")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	since, until, err := rangeParams(r)
	if err != nil {
		http.Error(w, "error, invalid since/until params", http.StatusBadRequest)
		return
	}

	overviews, err := handler.analyzer.TeamOverviews(ctx, coachID, since, until)
	if err != nil {
		log.Errorf("team overviews failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, overviews)
}

func (handler *Handler) HandleActivityFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.activityFeed")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	feed, err := handler.analyzer.ActivityFeed(ctx, coachID, time.Now())
	if err != nil {
		log.Errorf("activity feed failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, feed)
}

func (handler *Handler) HandleDueWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.dueWorkouts")
	defer span.End()

	coachID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	due, err := handler.analyzer.DueWorkouts(ctx, coachID, time.Now())
	if err != nil {
		log.Errorf("due workouts failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, due)
}

func (handler *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboard.handler.leaderboard")
	defer span.End()

	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		http.Error(w, "error, team_id param empty", http.StatusBadRequest)
		return
	}
	metric := r.URL.Query().Get("metric")
	switch metric {
	case "":
		metric = LeaderboardAvgVelocity
	case LeaderboardAvgVelocity, LeaderboardPeakVelocity:
	default:
		http.Error(w, "error, unknown metric", http.StatusBadRequest)
		return
	}

	entries, err := handler.analyzer.Leaderboard(ctx, teamID, metric)
	if err != nil {
		log.Errorf("leaderboard failed: %s", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJson(w, entries)
}

func rangeParams(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -defaultRangeDays)
	until := now

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		since = parsed
	}
	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		parsed, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		until = parsed
	}

	return since, until, nil
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
