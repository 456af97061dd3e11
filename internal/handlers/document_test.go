package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/storage"
)

type stubDocRepo struct {
	docs      map[uuid.UUID]*models.Document
	createErr error
	deleted   []uuid.UUID
}

func newStubDocRepo(docs ...*models.Document) *stubDocRepo {
	r := &stubDocRepo{docs: map[uuid.UUID]*models.Document{}}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *stubDocRepo) Create(ctx context.Context, d *models.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	d.ID = uuid.New()
	d.UploadedAt = time.Now()
	r.docs[d.ID] = d
	return nil
}

func (r *stubDocRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (r *stubDocRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range r.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *stubDocRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	delete(r.docs, id)
	return nil
}

type memObjectStore struct {
	objects map[string][]byte
	deletes []string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (s *memObjectStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memObjectStore) Delete(ctx context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	return nil, nil
}

func (s *memObjectStore) PublicURL(key string) string { return "http://files.test/" + key }

// fakeExtractor treats anything starting with %PDF as a one-page document
// whose text is the rest of the bytes.
type fakeExtractor struct{}

func (fakeExtractor) PageCount(data []byte) (int, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return 0, services.ErrUnsupportedFormat
	}
	return 1, nil
}

func (fakeExtractor) Extract(data []byte) (string, error) {
	text := strings.TrimSpace(strings.TrimPrefix(string(data), "%PDF"))
	if text == "" {
		return "", services.ErrNoTextExtracted
	}
	return text, nil
}

type stubSummarizer struct {
	got string
	err error
}

func (s *stubSummarizer) Summarize(ctx context.Context, conv services.Conversation, text string) (string, error) {
	s.got = text
	if s.err != nil {
		return "", s.err
	}
	return "summary of " + text, nil
}

type nilConversations struct{}

func (nilConversations) NewConversation() services.Conversation { return nil }

type stubHandoffs struct {
	put   map[string]repository.Handoff
	owner map[string]uuid.UUID
}

func newStubHandoffs() *stubHandoffs {
	return &stubHandoffs{put: map[string]repository.Handoff{}, owner: map[string]uuid.UUID{}}
}

func (s *stubHandoffs) Put(ctx context.Context, ownerID uuid.UUID, h repository.Handoff) (string, error) {
	token := uuid.NewString()
	s.put[token] = h
	s.owner[token] = ownerID
	return token, nil
}

func (s *stubHandoffs) TTL() time.Duration { return 15 * time.Minute }

func (s *stubHandoffs) Take(ctx context.Context, ownerID uuid.UUID, token string) (*repository.Handoff, error) {
	h, ok := s.put[token]
	if !ok || s.owner[token] != ownerID {
		return nil, repository.ErrHandoffNotFound
	}
	delete(s.put, token)
	return &h, nil
}

func newDocumentHandler(docs *stubDocRepo, store *memObjectStore, sum *stubSummarizer, handoffs *stubHandoffs) *DocumentHandler {
	h := NewDocumentHandler(docs, store, fakeExtractor{}, sum, nilConversations{}, handoffs, 1<<20, logger.Nop())
	h.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return h
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentHandler_UploadStoresPDF(t *testing.T) {
	owner := uuid.New()
	docs := newStubDocRepo()
	store := newMemObjectStore()
	h := newDocumentHandler(docs, store, &stubSummarizer{}, newStubHandoffs())

	rr := httptest.NewRecorder()
	h.Upload(rr, withUser(multipartUpload(t, "notes.pdf", []byte("%PDF cells")), owner))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Document models.Document `json:"document"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)

	wantKey := owner.String() + "/1700000000000-notes.pdf"
	if resp.Document.StorageKey != wantKey {
		t.Fatalf("expected key %q, got %q", wantKey, resp.Document.StorageKey)
	}
	if resp.Document.OriginalName != "notes.pdf" || resp.Document.PublicURL != "http://files.test/"+wantKey {
		t.Fatalf("unexpected document %+v", resp.Document)
	}
	if _, ok := store.objects[wantKey]; !ok {
		t.Fatalf("expected object to be stored")
	}
}

func TestDocumentHandler_UploadRejectsNonPDF(t *testing.T) {
	store := newMemObjectStore()
	h := newDocumentHandler(newStubDocRepo(), store, &stubSummarizer{}, newStubHandoffs())

	rr := httptest.NewRecorder()
	h.Upload(rr, withUser(multipartUpload(t, "notes.docx", []byte("PK\x03\x04")), uuid.New()))

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
	if len(store.objects) != 0 {
		t.Fatalf("rejected uploads must not reach storage")
	}
}

func TestDocumentHandler_UploadRemovesObjectWhenRowFails(t *testing.T) {
	docs := newStubDocRepo()
	docs.createErr = errors.New("db down")
	store := newMemObjectStore()
	h := newDocumentHandler(docs, store, &stubSummarizer{}, newStubHandoffs())

	rr := httptest.NewRecorder()
	h.Upload(rr, withUser(multipartUpload(t, "notes.pdf", []byte("%PDF text")), uuid.New()))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if len(store.deletes) != 1 || len(store.objects) != 0 {
		t.Fatalf("expected the orphaned object to be deleted, got deletes=%v objects=%d", store.deletes, len(store.objects))
	}
}

func TestDocumentHandler_ListStripsTimestamp(t *testing.T) {
	owner := uuid.New()
	key := owner.String() + "/1700000000000-biology.pdf"
	docs := newStubDocRepo(&models.Document{ID: uuid.New(), OwnerID: owner, StorageKey: key})
	h := newDocumentHandler(docs, newMemObjectStore(), &stubSummarizer{}, newStubHandoffs())

	rr := httptest.NewRecorder()
	h.List(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), owner))

	var resp struct {
		Documents []models.Document `json:"documents"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Documents) != 1 || resp.Documents[0].OriginalName != "biology.pdf" {
		t.Fatalf("unexpected documents %+v", resp.Documents)
	}
	if resp.Documents[0].PublicURL == "" {
		t.Fatalf("expected a public url")
	}
}

func TestDocumentHandler_OwnerChecks(t *testing.T) {
	owner := uuid.New()
	doc := &models.Document{ID: uuid.New(), OwnerID: owner, StorageKey: owner.String() + "/1-a.pdf"}

	tests := []struct {
		name   string
		call   func(h *DocumentHandler) http.HandlerFunc
		method string
	}{
		{"delete", func(h *DocumentHandler) http.HandlerFunc { return h.Delete }, http.MethodDelete},
		{"analyze", func(h *DocumentHandler) http.HandlerFunc { return h.Analyze }, http.MethodPost},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs := newStubDocRepo(doc)
			h := newDocumentHandler(docs, newMemObjectStore(), &stubSummarizer{}, newStubHandoffs())

			req := withParam(withUser(httptest.NewRequest(tc.method, "/", nil), uuid.New()), "id", doc.ID.String())
			rr := httptest.NewRecorder()
			tc.call(h)(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rr.Code)
			}
			if len(docs.deleted) != 0 {
				t.Fatalf("non-owner must not delete")
			}
		})
	}
}

func TestDocumentHandler_AnalyzeIssuesHandoff(t *testing.T) {
	owner := uuid.New()
	key := owner.String() + "/1-a.pdf"
	doc := &models.Document{ID: uuid.New(), OwnerID: owner, StorageKey: key}
	store := newMemObjectStore()
	store.objects[key] = []byte("%PDF mitochondria")
	handoffs := newStubHandoffs()
	sum := &stubSummarizer{}
	h := newDocumentHandler(newStubDocRepo(doc), store, sum, handoffs)

	rr := httptest.NewRecorder()
	h.Analyze(rr, withParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), owner), "id", doc.ID.String()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.AnalyzeDocumentResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	if resp.Summary != "summary of mitochondria" || resp.ExpiresIn != 900 {
		t.Fatalf("unexpected response %+v", resp)
	}
	stored, ok := handoffs.put[resp.HandoffToken]
	if !ok || stored.DocumentID != doc.ID || stored.Summary != resp.Summary {
		t.Fatalf("expected handoff to carry the summary, got %+v", stored)
	}
}

func TestDocumentHandler_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		sumErr     error
		wantStatus int
		wantCode   string
	}{
		{"image-only document", "%PDF   ", nil, http.StatusUnprocessableEntity, "NO_TEXT_EXTRACTED"},
		{"model failure", "%PDF text", services.ErrGenerationFailed, http.StatusBadGateway, "GENERATION_FAILED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner := uuid.New()
			key := owner.String() + "/1-a.pdf"
			doc := &models.Document{ID: uuid.New(), OwnerID: owner, StorageKey: key}
			store := newMemObjectStore()
			store.objects[key] = []byte(tc.content)
			handoffs := newStubHandoffs()
			h := newDocumentHandler(newStubDocRepo(doc), store, &stubSummarizer{err: tc.sumErr}, handoffs)

			rr := httptest.NewRecorder()
			h.Analyze(rr, withParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), owner), "id", doc.ID.String()))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if code := decodeError(t, rr).Code; code != tc.wantCode {
				t.Fatalf("expected %s, got %s", tc.wantCode, code)
			}
			if len(handoffs.put) != 0 {
				t.Fatalf("no handoff on failure")
			}
		})
	}
}
