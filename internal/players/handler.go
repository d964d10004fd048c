package players

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


type playersRepo interface {
	Add(ctx context.Context, p Player) (*Player, error)
	Get(ctx context.Context, id string) (*Player, error)
	GetByUserID(ctx context.Context, userID string) (*Player, error)
	ListForTeam(ctx context.Context, teamID string) ([]Player, error)
	Update(ctx context.Context, id string, u Update) (*Player, error)
	Delete(ctx context.Context, id string) error
	ClaimInvite(ctx context.Context, inviteCode, userID string) (*Player, error)
}

type Handler struct {
	repo playersRepo
}

func NewHandler(repo playersRepo) *Handler {
	return &Handler{repo: repo}
}

type newPlayerRequest struct {
	TeamID        string `json:"team_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	JerseyNumber  *int   `json:"jersey_number"`
	PositionGroup string `json:"position_group"`
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "add player failed, invalid content type", http.StatusBadRequest)
		return
	}

	var req newPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add player failed, unmarshal json params: %s", err)
		http.Error(w, "add player failed", http.StatusBadRequest)
		return
	}
	if req.TeamID == "" {
		http.Error(w, "error, team id empty", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.FirstName) == "" && strings.TrimSpace(req.LastName) == "" {
		http.Error(w, "error, player name empty", http.StatusBadRequest)
		return
	}
	if req.PositionGroup == "" {
		req.PositionGroup = PositionGroupSkill
	}

	inviteCode, err := pkg.GenerateInviteCode()
	if err != nil {
		log.Errorf("add player failed, generate invite code: %s", err)
		http.Error(w, "add player failed", http.StatusInternalServerError)
		return
	}

	added, err := handler.repo.Add(ctx, Player{
		TeamID:        req.TeamID,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		JerseyNumber:  req.JerseyNumber,
		PositionGroup: req.PositionGroup,
		InviteCode:    &inviteCode,
	})
	if err != nil {
		log.Errorf("add player failed: %s", err)
		http.Error(w, "add player failed", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal added player: %s", err)
		http.Error(w, "add player failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.list")
	defer span.End()

	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		http.Error(w, "error, team_id param empty", http.StatusBadRequest)
		return
	}

	roster, err := handler.repo.ListForTeam(ctx, teamID)
	if err != nil {
		log.Errorf("list players failed: %s", err)
		http.Error(w, "list players failed", http.StatusInternalServerError)
		return
	}

	rosterJson, err := json.Marshal(roster)
	if err != nil {
		log.Errorf("marshal players: %s", err)
		http.Error(w, "list players failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, rosterJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.get")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	player, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		log.Errorf("get player %s failed: %s", id, err)
		http.Error(w, "get player failed", http.StatusInternalServerError)
		return
	}

	playerJson, err := json.Marshal(player)
	if err != nil {
		log.Errorf("marshal player: %s", err)
		http.Error(w, "get player failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, playerJson, http.StatusOK)
}

// HandleGetMe resolves the roster spot linked to the authenticated user.
func (handler *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.getMe")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	player, err := handler.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			http.Error(w, "no linked player", http.StatusNotFound)
			return
		}
		log.Errorf("get linked player failed: %s", err)
		http.Error(w, "get linked player failed", http.StatusInternalServerError)
		return
	}

	playerJson, err := json.Marshal(player)
	if err != nil {
		log.Errorf("marshal player: %s", err)
		http.Error(w, "get linked player failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, playerJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.update")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Errorf("update player failed, unmarshal json params: %s", err)
		http.Error(w, "update player failed", http.StatusBadRequest)
		return
	}

	updated, err := handler.repo.Update(ctx, id, u)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		log.Errorf("update player %s failed: %s", id, err)
		http.Error(w, "update player failed", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal updated player: %s", err)
		http.Error(w, "update player failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.delete")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete player %s failed: %s", id, err)
		http.Error(w, "delete player failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", id))
}

type claimInviteRequest struct {
	InviteCode string `json:"invite_code"`
}

// HandleClaimInvite links the authenticated user to a roster spot via
// the code the coach handed out.
func (handler *Handler) HandleClaimInvite(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "players.handler.claimInvite")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	var req claimInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("claim invite failed, unmarshal json params: %s", err)
		http.Error(w, "claim invite failed", http.StatusBadRequest)
		return
	}
	req.InviteCode = strings.ToUpper(strings.TrimSpace(req.InviteCode))
	if req.InviteCode == "" {
		http.Error(w, "error, invite code empty", http.StatusBadRequest)
		return
	}

	claimed, err := handler.repo.ClaimInvite(ctx, req.InviteCode, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInviteCodeNotFound):
			http.Error(w, "invite code not found", http.StatusNotFound)
		case errors.Is(err, ErrInviteCodeClaimed):
			http.Error(w, "invite code already claimed", http.StatusConflict)
		default:
			log.Errorf("claim invite failed: %s", err)
			http.Error(w, "claim invite failed", http.StatusInternalServerError)
		}
		return
	}

	claimedJson, err := json.Marshal(claimed)
	if err != nil {
		log.Errorf("marshal claimed player: %s", err)
		http.Error(w, "claim invite failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, claimedJson, http.StatusOK)
}
