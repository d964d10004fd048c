package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cmpeavlerjr72/vbt-api/internal/auth"
	"github.com/cmpeavlerjr72/vbt-api/internal/telemetry/tracing"
	"github.com/cmpeavlerjr72/vbt-api/pkg"

	log "github.com/sirupsen/logrus"
)


type profilesRepo interface {
	GetOrCreate(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, u Update) (*Profile, error)
}

type Handler struct {
	repo profilesRepo
}

func NewHandler(repo profilesRepo) *Handler {
	return &Handler{repo: repo}
}

func (handler *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "profiles.handler.getMe")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	profile, err := handler.repo.GetOrCreate(ctx, userID)
	if err != nil {
		log.Errorf("get profile failed: %s", err)
		http.Error(w, "get profile failed", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(profile)
	if err != nil {
		log.Errorf("marshal profile: %s", err)
		http.Error(w, "get profile failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, profileJson, http.StatusOK)
}

func (handler *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "profiles.handler.updateMe")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no auth user", http.StatusUnauthorized)
		return
	}

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Errorf("update profile failed, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}
	if u.Role != nil && *u.Role != RoleCoach && *u.Role != RolePlayer {
		http.Error(w, "error, unknown role", http.StatusBadRequest)
		return
	}

	updated, err := handler.repo.Update(ctx, userID, u)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("update profile failed: %s", err)
		http.Error(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal profile: %s", err)
		http.Error(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, updatedJson, http.StatusOK)
}
