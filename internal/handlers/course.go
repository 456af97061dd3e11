package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
)

type courseRepository interface {
	Create(ctx context.Context, c *models.Course) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Course, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type CourseHandler struct {
	courses courseRepository
}

func NewCourseHandler(courses courseRepository) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch courses", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses})
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course := &models.Course{
		UserID:     middleware.GetUserID(r.Context()),
		CourseName: strings.TrimSpace(req.CourseName),
		CourseCode: strings.TrimSpace(req.CourseCode),
		Progress:   req.Progress,
	}
	if err := h.courses.Create(r.Context(), course); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create course", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"course": course})
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "course")
	if !ok {
		return
	}
	var req models.CourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course := &models.Course{
		ID:         id,
		UserID:     middleware.GetUserID(r.Context()),
		CourseName: strings.TrimSpace(req.CourseName),
		CourseCode: strings.TrimSpace(req.CourseCode),
		Progress:   req.Progress,
	}
	if err := h.courses.Update(r.Context(), course); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"course": course})
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "course")
	if !ok {
		return
	}

	if err := h.courses.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Course deleted"})
}
