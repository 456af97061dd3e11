package handlers

import (
	"net/http"
	"strings"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

type tutorConversations interface {
	NewTutorConversation(history []models.ChatMessage) services.Conversation
}

type TutorHandler struct {
	tutor tutorConversations
	log   *logger.Logger
}

func NewTutorHandler(tutor tutorConversations, log *logger.Logger) *TutorHandler {
	return &TutorHandler{tutor: tutor, log: log.With("handler", "tutor")}
}

// Chat answers one message. The client keeps the transcript and sends it
// back as history on every turn.
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv := h.tutor.NewTutorConversation(req.History)
	reply, err := conv.Send(r.Context(), strings.TrimSpace(req.Message))
	if err != nil {
		h.log.Warn("tutor reply failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResp("TUTOR_UNAVAILABLE", "The tutor could not answer right now. Please try again.", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}
