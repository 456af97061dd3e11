package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

type quizService interface {
	CreateSession(ctx context.Context, userID, jobID uuid.UUID) (*models.QuizSession, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.QuizSession, error)
	SelectAnswer(ctx context.Context, userID, sessionID uuid.UUID, index int, option string) (*models.QuizSession, error)
	Submit(ctx context.Context, userID uuid.UUID, email string, sessionID uuid.UUID) (*services.QuizResult, error)
	ReportVisibility(ctx context.Context, userID, sessionID uuid.UUID, hidden bool) (int, error)
}

// monitorStopper ends integrity monitoring for a session on every connection.
type monitorStopper interface {
	StopSession(userID, sessionID uuid.UUID)
}

type QuizSessionHandler struct {
	quizzes  quizService
	monitors monitorStopper
}

func NewQuizSessionHandler(quizzes quizService, monitors monitorStopper) *QuizSessionHandler {
	return &QuizSessionHandler{quizzes: quizzes, monitors: monitors}
}

func (h *QuizSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qs, err := h.quizzes.CreateSession(r.Context(), middleware.GetUserID(r.Context()), req.JobID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": qs.View()})
}

func (h *QuizSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(w, r, "id", "quiz session")
	if !ok {
		return
	}

	qs, err := h.quizzes.Get(r.Context(), middleware.GetUserID(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": qs.View()})
}

func (h *QuizSessionHandler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(w, r, "id", "quiz session")
	if !ok {
		return
	}
	var req models.SelectAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qs, err := h.quizzes.SelectAnswer(r.Context(), middleware.GetUserID(r.Context()), sessionID, *req.QuestionIndex, req.Option)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": qs.View()})
}

func (h *QuizSessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(w, r, "id", "quiz session")
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	result, err := h.quizzes.Submit(r.Context(), userID, middleware.GetUserEmail(r.Context()), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if h.monitors != nil {
		h.monitors.StopSession(userID, sessionID)
	}

	writeJSON(w, http.StatusOK, result)
}

// IntegrityEvent accepts integrity events over HTTP for clients without a
// WebSocket connection. A tab-hidden event counts once until tab-visible
// arrives. Fullscreen events only report the current total.
func (h *QuizSessionHandler) IntegrityEvent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(w, r, "id", "quiz session")
	if !ok {
		return
	}
	var req models.IntegrityEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	if req.Type != "tab-hidden" && req.Type != "tab-visible" {
		qs, err := h.quizzes.Get(r.Context(), userID, sessionID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"integrity_flags": qs.IntegrityFlags})
		return
	}

	flags, err := h.quizzes.ReportVisibility(r.Context(), userID, sessionID, req.Type == "tab-hidden")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"integrity_flags": flags})
}
