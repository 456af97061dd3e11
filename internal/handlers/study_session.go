package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
)

type studySessionRepository interface {
	Start(ctx context.Context, s *models.StudySession) error
	Heartbeat(ctx context.Context, sessionID, userID uuid.UUID) error
	Stop(ctx context.Context, sessionID, userID uuid.UUID) error
}

type StudySessionHandler struct {
	repo studySessionRepository
}

func NewStudySessionHandler(repo studySessionRepository) *StudySessionHandler {
	return &StudySessionHandler{repo: repo}
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.StartStudySessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session := &models.StudySession{
		UserID:       userID,
		ActivityType: req.ActivityType,
		ResourceID:   uuid.MustParse(req.ResourceID),
		ClientMetaJSON: func() json.RawMessage {
			if len(req.ClientMeta) == 0 {
				return json.RawMessage("{}")
			}
			return req.ClientMeta
		}(),
	}

	if err := h.repo.Start(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start study session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

func (h *StudySessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := parseIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.repo.Heartbeat(r.Context(), sessionID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Heartbeat recorded"})
}

func (h *StudySessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := parseIDParam(w, r, "id", "session")
	if !ok {
		return
	}

	if err := h.repo.Stop(r.Context(), sessionID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study session stopped"})
}
