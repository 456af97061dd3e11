package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/storage"
)

const maxJSONBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(middleware.RequestIDHeader)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: requestID(r),
		},
	}
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	if err := services.Validate(dst); err != nil {
		handleServiceError(w, r, err)
		return false
	}
	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+label+" ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
		return
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
		return
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
		return
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
		return
	}

	switch {
	case errors.Is(err, services.ErrUnsupportedFormat):
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only PDF documents are supported", r))
	case errors.Is(err, services.ErrNoTextExtracted):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("NO_TEXT_EXTRACTED", "No text could be extracted from this document", r))
	case errors.Is(err, services.ErrGenerationFailed):
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", services.ErrGenerationFailed.Error(), r))
	case errors.Is(err, models.ErrIncompleteAnswers):
		writeJSON(w, http.StatusBadRequest, errorResp("INCOMPLETE_ANSWERS", "Please answer every question before submitting", r))
	case errors.Is(err, models.ErrIndexOutOfRange):
		writeJSON(w, http.StatusBadRequest, errorResp("INDEX_OUT_OF_RANGE", "Question index is out of range", r))
	case errors.Is(err, models.ErrQuizSubmitted):
		writeJSON(w, http.StatusConflict, errorResp("QUIZ_SUBMITTED", "This quiz has already been submitted", r))
	case errors.Is(err, repository.ErrHandoffNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("HANDOFF_NOT_FOUND", "Summary has expired or was already used. Analyze the document again.", r))
	case errors.Is(err, repository.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Username is already taken", r))
	case errors.Is(err, repository.ErrConcurrentUpdate):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Please retry the request", r))
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Resource not found", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
