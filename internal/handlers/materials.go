package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
)

type jobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type documentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
}

type handoffTaker interface {
	Take(ctx context.Context, ownerID uuid.UUID, token string) (*repository.Handoff, error)
}

type sequenceAllocator interface {
	Next(ctx context.Context, userID uuid.UUID) (int64, error)
}

type materialsReader interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.StudyMaterials, error)
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type MaterialsHandler struct {
	jobs      jobRepository
	docs      documentGetter
	handoffs  handoffTaker
	sequence  sequenceAllocator
	materials materialsReader
	queue     jobEnqueuer
	log       *logger.Logger
}

func NewMaterialsHandler(jobs jobRepository, docs documentGetter, handoffs handoffTaker, sequence sequenceAllocator,
	materials materialsReader, queue jobEnqueuer, log *logger.Logger) *MaterialsHandler {
	return &MaterialsHandler{
		jobs:      jobs,
		docs:      docs,
		handoffs:  handoffs,
		sequence:  sequence,
		materials: materials,
		queue:     queue,
		log:       log.With("handler", "study_materials"),
	}
}

// Generate queues a study-materials job from either a document or a handoff
// token returned by document analysis. A token is consumed here, so a
// failed request needs a fresh analysis.
func (h *MaterialsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateMaterialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())

	var cfg models.GenerationConfig
	if req.HandoffToken != "" {
		handoff, err := h.handoffs.Take(r.Context(), userID, req.HandoffToken)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		cfg.DocumentID = &handoff.DocumentID
		cfg.Summary = handoff.Summary
	} else {
		doc, err := h.docs.GetByID(r.Context(), *req.DocumentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Document not found", r))
			} else {
				writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch document", r))
			}
			return
		}
		if doc.OwnerID != userID {
			writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not have access to this document", r))
			return
		}
		cfg.DocumentID = &doc.ID
	}

	seq, err := h.sequence.Next(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to allocate generation sequence", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	configBytes, _ := json.Marshal(cfg)
	job := &models.Job{
		UserID:      userID,
		Type:        models.JobTypeStudyMaterials,
		ReferenceID: *cfg.DocumentID,
		ConfigJSON:  configBytes,
		Sequence:    seq,
	}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.log.Error("failed to enqueue study-materials job", "job_id", job.ID, "error", err)
		_ = h.jobs.UpdateStatus(r.Context(), job.ID, models.JobStatusFailed)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue study materials job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"sequence": job.Sequence,
	})
}

func (h *MaterialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIDParam(w, r, "jobId", "job")
	if !ok {
		return
	}

	job, err := h.jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch job", r))
		}
		return
	}
	if job.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not have access to this job", r))
		return
	}

	resp := models.JobResponse{Job: job}
	if job.Status == models.JobStatusCompleted {
		materials, err := h.materials.Get(r.Context(), job.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusGone, errorResp("MATERIALS_EXPIRED", "These study materials have expired. Generate them again.", r))
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch study materials", r))
			return
		}
		resp.Materials = materials
	}

	writeJSON(w, http.StatusOK, resp)
}
