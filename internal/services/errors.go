package services

import "errors"

var (
	// ErrUnsupportedFormat means the bytes are not a readable paginated document.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoTextExtracted means the document parsed but produced only whitespace,
	// which usually indicates a scanned or image-only file.
	ErrNoTextExtracted = errors.New("no extractable text found in document")
	// ErrGenerationFailed covers every AI call or parse failure in the pipeline.
	ErrGenerationFailed = errors.New("Failed to generate study materials")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }
