package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
)

type profileRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error)
	Update(ctx context.Context, p *models.UserProfile) error
	TouchLogin(ctx context.Context, userID uuid.UUID) (int, error)
}

type ProfileHandler struct {
	profiles profileRepository
	log      *logger.Logger
}

func NewProfileHandler(profiles profileRepository, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log.With("handler", "profile")}
}

// Get returns the caller's profile, creating it on first access. Each call
// also advances the daily login streak.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.profiles.GetOrCreate(r.Context(), userID, middleware.GetUserEmail(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load profile", r))
		return
	}
	if streak, err := h.profiles.TouchLogin(r.Context(), userID); err != nil {
		h.log.Warn("failed to update login streak", "user_id", userID, "error", err)
	} else {
		profile.LoginStreak = streak
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	profile, err := h.profiles.GetOrCreate(r.Context(), userID, middleware.GetUserEmail(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load profile", r))
		return
	}

	if req.Username != nil {
		profile.Username = strings.TrimSpace(*req.Username)
	}
	if req.Name != nil {
		profile.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.College != nil {
		profile.College = req.College
	}
	if req.Semester != nil {
		profile.Semester = req.Semester
	}

	if err := h.profiles.Update(r.Context(), profile); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}
