package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
)

type taskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	ListByUser(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type TaskHandler struct {
	tasks taskRepository
}

func NewTaskHandler(tasks taskRepository) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List returns tasks by due date. Completed tasks are included only with
// ?include_completed=true.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	includeCompleted := r.URL.Query().Get("include_completed") == "true"

	tasks, err := h.tasks.ListByUser(r.Context(), middleware.GetUserID(r.Context()), includeCompleted)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tasks", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task := &models.Task{
		UserID:      middleware.GetUserID(r.Context()),
		CourseID:    req.CourseID,
		Title:       strings.TrimSpace(req.Title),
		DueDate:     req.DueDate,
		IsCompleted: req.IsCompleted,
	}
	if err := h.tasks.Create(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create task", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": task})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "task")
	if !ok {
		return
	}
	var req models.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task := &models.Task{
		ID:          id,
		UserID:      middleware.GetUserID(r.Context()),
		CourseID:    req.CourseID,
		Title:       strings.TrimSpace(req.Title),
		DueDate:     req.DueDate,
		IsCompleted: req.IsCompleted,
	}
	if err := h.tasks.Update(r.Context(), task); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "task")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}
