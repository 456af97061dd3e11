package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded source file. Rows are immutable once created.
type Document struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	OriginalName string    `json:"original_name"`
	StorageKey   string    `json:"storage_key"`
	SizeBytes    int64     `json:"size_bytes"`
	PageCount    int       `json:"page_count"`
	UploadedAt   time.Time `json:"uploaded_at"`
	PublicURL    string    `json:"public_url,omitempty"`
}

type AnalyzeDocumentResponse struct {
	DocumentID   uuid.UUID `json:"document_id"`
	Summary      string    `json:"summary"`
	HandoffToken string    `json:"handoff_token"`
	ExpiresIn    int       `json:"expires_in"`
}
