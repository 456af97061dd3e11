package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/storage"
)

type documentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Document, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

type documentExtractor interface {
	PageCount(data []byte) (int, error)
	Extract(data []byte) (string, error)
}

type documentSummarizer interface {
	Summarize(ctx context.Context, conv services.Conversation, text string) (string, error)
}

type conversationFactory interface {
	NewConversation() services.Conversation
}

type handoffWriter interface {
	Put(ctx context.Context, ownerID uuid.UUID, h repository.Handoff) (string, error)
	TTL() time.Duration
}

type DocumentHandler struct {
	docs          documentRepository
	store         storage.DocumentStore
	extractor     documentExtractor
	summarizer    documentSummarizer
	conversations conversationFactory
	handoffs      handoffWriter
	maxUpload     int64
	log           *logger.Logger
	now           func() time.Time
}

func NewDocumentHandler(
	docs documentRepository,
	store storage.DocumentStore,
	extractor documentExtractor,
	summarizer documentSummarizer,
	conversations conversationFactory,
	handoffs handoffWriter,
	maxUploadBytes int64,
	log *logger.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docs:          docs,
		store:         store,
		extractor:     extractor,
		summarizer:    summarizer,
		conversations: conversations,
		handoffs:      handoffs,
		maxUpload:     maxUploadBytes,
		log:           log.With("handler", "documents"),
		now:           time.Now,
	}
}

// Upload stores a PDF in object storage and records it. If the row cannot be
// written the object is removed again.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File is too large or the form is malformed", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File exceeds the upload limit", r))
		return
	}

	pages, err := h.extractor.PageCount(data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	key := storage.NewKey(userID, header.Filename, h.now())
	if err := h.store.Put(r.Context(), key, bytes.NewReader(data), "application/pdf"); err != nil {
		h.log.Error("failed to store document", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store document", r))
		return
	}

	doc := &models.Document{
		OwnerID:      userID,
		OriginalName: storage.SanitizeFilename(header.Filename),
		StorageKey:   key,
		SizeBytes:    int64(len(data)),
		PageCount:    pages,
	}
	if err := h.docs.Create(r.Context(), doc); err != nil {
		h.log.Error("failed to record document", "key", key, "error", err)
		if delErr := h.store.Delete(context.WithoutCancel(r.Context()), key); delErr != nil {
			h.log.Warn("failed to remove orphaned object", "key", key, "error", delErr)
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record document", r))
		return
	}
	doc.PublicURL = h.store.PublicURL(key)

	writeJSON(w, http.StatusCreated, map[string]interface{}{"document": doc})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	docs, err := h.docs.ListByOwner(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch documents", r))
		return
	}

	for _, d := range docs {
		d.PublicURL = h.store.PublicURL(d.StorageKey)
		if d.OriginalName == "" {
			d.OriginalName = storage.DisplayName(d.StorageKey)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// owned loads a document and enforces ownership, writing the error response
// when it fails.
func (h *DocumentHandler) owned(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id, ok := parseIDParam(w, r, "id", "document")
	if !ok {
		return nil, false
	}

	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Document not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch document", r))
		}
		return nil, false
	}
	if doc.OwnerID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not have access to this document", r))
		return nil, false
	}
	return doc, true
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), doc.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.log.Error("failed to delete object", "key", doc.StorageKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete document", r))
		return
	}
	if err := h.docs.Delete(r.Context(), doc.ID, doc.OwnerID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

// Analyze extracts the document text, summarizes it and hands the summary
// off under a single-use token for material generation.
func (h *DocumentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}

	rc, err := h.store.Open(r.Context(), doc.StorageKey)
	if err != nil {
		h.log.Error("failed to open document", "key", doc.StorageKey, "error", err)
		handleServiceError(w, r, err)
		return
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read document", r))
		return
	}

	text, err := h.extractor.Extract(data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), h.conversations.NewConversation(), text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	token, err := h.handoffs.Put(r.Context(), doc.OwnerID, repository.Handoff{DocumentID: doc.ID, Summary: summary})
	if err != nil {
		h.log.Error("failed to store handoff", "document_id", doc.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save summary", r))
		return
	}

	writeJSON(w, http.StatusOK, models.AnalyzeDocumentResponse{
		DocumentID:   doc.ID,
		Summary:      summary,
		HandoffToken: token,
		ExpiresIn:    int(h.handoffs.TTL().Seconds()),
	})
}
