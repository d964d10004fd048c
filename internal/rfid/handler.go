package rfid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/metrics"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)


const defaultScansLimit = 100

type rfidRepo interface {
	AddTag(ctx context.Context, t Tag) (*Tag, error)
	GetTagByUID(ctx context.Context, uid string) (*Tag, error)
	ListTagsForTeam(ctx context.Context, teamID string) ([]Tag, error)
	AssignTag(ctx context.Context, tagID, playerID string) (*Tag, error)
	AddScanEvent(ctx context.Context, e ScanEvent) (*ScanEvent, error)
	ListScanEventsForTeam(ctx context.Context, teamID string, limit int) ([]ScanEvent, error)
	DeviceRoster(ctx context.Context, teamID string) ([]RosterEntry, error)
}

type Handler struct {
	repo    rfidRepo
	metrics *metrics.Manager
}

func NewHandler(repo rfidRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

type newTagRequest struct {
	UID              string  `json:"uid"`
	TeamID           string  `json:"team_id"`
	AssignedPlayerID *string `json:"assigned_player_id"`
}

func (handler *Handler) HandleAddTag(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.addTag")
	defer span.End()

	var req newTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add tag failed, unmarshal json params: %s", err)
		http.Error(w, "add tag failed", http.StatusBadRequest)
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if req.UID == "" || req.TeamID == "" {
		http.Error(w, "error, uid or team id empty", http.StatusBadRequest)
		return
	}

	added, err := handler.repo.AddTag(ctx, Tag{
		UID:              req.UID,
		TeamID:           req.TeamID,
		AssignedPlayerID: req.AssignedPlayerID,
	})
	if err != nil {
		log.Errorf("add tag failed: %s", err)
		http.Error(w, "add tag failed", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal added tag: %s", err)
		http.Error(w, "add tag failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

// HandleLookupTag resolves a tag by uid, or lists a team's tags when
// only team_id is given.
func (handler *Handler) HandleLookupTag(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.lookupTag")
	defer span.End()

	uid := r.URL.Query().Get("uid")
	teamID := r.URL.Query().Get("team_id")

	switch {
	case uid != "":
		tag, err := handler.repo.GetTagByUID(ctx, uid)
		if err != nil {
			if errors.Is(err, ErrTagNotFound) {
				http.Error(w, "tag not found", http.StatusNotFound)
				return
			}
			log.Errorf("lookup tag failed: %s", err)
			http.Error(w, "lookup tag failed", http.StatusInternalServerError)
			return
		}
		tagJson, err := json.Marshal(tag)
		if err != nil {
			log.Errorf("marshal tag: %s", err)
			http.Error(w, "lookup tag failed", http.StatusInternalServerError)
			return
		}
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, tagJson, http.StatusOK)
	case teamID != "":
		tags, err := handler.repo.ListTagsForTeam(ctx, teamID)
		if err != nil {
			log.Errorf("list tags failed: %s", err)
			http.Error(w, "list tags failed", http.StatusInternalServerError)
			return
		}
		tagsJson, err := json.Marshal(tags)
		if err != nil {
			log.Errorf("marshal tags: %s", err)
			http.Error(w, "list tags failed", http.StatusInternalServerError)
			return
		}
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, tagsJson, http.StatusOK)
	default:
		http.Error(w, "error, uid or team_id param required", http.StatusBadRequest)
	}
}

type assignTagRequest struct {
	PlayerID string `json:"player_id"`
}

func (handler *Handler) HandleAssignTag(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.assignTag")
	defer span.End()

	vars := mux.Vars(r)
	tagID := vars["id"]

	var req assignTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("assign tag failed, unmarshal json params: %s", err)
		http.Error(w, "assign tag failed", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		http.Error(w, "error, player id empty", http.StatusBadRequest)
		return
	}

	assigned, err := handler.repo.AssignTag(ctx, tagID, req.PlayerID)
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			http.Error(w, "tag not found", http.StatusNotFound)
			return
		}
		log.Errorf("assign tag %s failed: %s", tagID, err)
		http.Error(w, "assign tag failed", http.StatusInternalServerError)
		return
	}

	assignedJson, err := json.Marshal(assigned)
	if err != nil {
		log.Errorf("marshal assigned tag: %s", err)
		http.Error(w, "assign tag failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, assignedJson, http.StatusOK)
}

type scanRequest struct {
	TeamID   string  `json:"team_id"`
	UID      string  `json:"uid"`
	DeviceID *string `json:"device_id"`
}

// HandleScan appends a raw scan event from a reader. Open device path,
// rate limited instead of authenticated.
func (handler *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.scan")
	defer span.End()

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("scan event failed, unmarshal json params: %s", err)
		http.Error(w, "scan event failed", http.StatusBadRequest)
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if req.UID == "" || req.TeamID == "" {
		http.Error(w, "error, uid or team id empty", http.StatusBadRequest)
		return
	}

	added, err := handler.repo.AddScanEvent(ctx, ScanEvent{
		TeamID:   req.TeamID,
		UID:      req.UID,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		log.Errorf("scan event failed: %s", err)
		http.Error(w, "scan event failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterScanEvents.Inc()

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal scan event: %s", err)
		http.Error(w, "scan event failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleListScans(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.listScans")
	defer span.End()

	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		http.Error(w, "error, team_id param empty", http.StatusBadRequest)
		return
	}

	limit := defaultScansLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	events, err := handler.repo.ListScanEventsForTeam(ctx, teamID, limit)
	if err != nil {
		log.Errorf("list scan events failed: %s", err)
		http.Error(w, "list scan events failed", http.StatusInternalServerError)
		return
	}

	eventsJson, err := json.Marshal(events)
	if err != nil {
		log.Errorf("marshal scan events: %s", err)
		http.Error(w, "list scan events failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, eventsJson, http.StatusOK)
}

// HandleDeviceRoster serves the slim roster a reader caches locally.
func (handler *Handler) HandleDeviceRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "rfid.handler.deviceRoster")
	defer span.End()

	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		http.Error(w, "error, team_id param empty", http.StatusBadRequest)
		return
	}

	roster, err := handler.repo.DeviceRoster(ctx, teamID)
	if err != nil {
		log.Errorf("device roster failed: %s", err)
		http.Error(w, "device roster failed", http.StatusInternalServerError)
		return
	}

	rosterJson, err := json.Marshal(roster)
	if err != nil {
		log.Errorf("marshal device roster: %s", err)
		http.Error(w, "device roster failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, rosterJson, http.StatusOK)
}
