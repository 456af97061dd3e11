package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

type stubQuizService struct {
	session         *models.QuizSession
	err             error
	visibilityCalls int
	submitted       bool
}

func (s *stubQuizService) CreateSession(ctx context.Context, userID, jobID uuid.UUID) (*models.QuizSession, error) {
	return s.session, s.err
}

func (s *stubQuizService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.QuizSession, error) {
	return s.session, s.err
}

func (s *stubQuizService) SelectAnswer(ctx context.Context, userID, sessionID uuid.UUID, index int, option string) (*models.QuizSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := s.session.SelectAnswer(index, option); err != nil {
		return nil, err
	}
	return s.session, nil
}

func (s *stubQuizService) Submit(ctx context.Context, userID uuid.UUID, email string, sessionID uuid.UUID) (*services.QuizResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.submitted = true
	return &services.QuizResult{Session: s.session.View(), Score: 100, XPAwarded: 100}, nil
}

func (s *stubQuizService) ReportVisibility(ctx context.Context, userID, sessionID uuid.UUID, hidden bool) (int, error) {
	s.visibilityCalls++
	if s.err != nil {
		return 0, s.err
	}
	s.session.ReportVisibility(hidden)
	return s.session.IntegrityFlags, nil
}

type recordingStopper struct {
	stopped []uuid.UUID
}

func (r *recordingStopper) StopSession(userID, sessionID uuid.UUID) {
	r.stopped = append(r.stopped, sessionID)
}

func sampleSession(owner uuid.UUID) *models.QuizSession {
	return models.NewQuizSession(owner, uuid.New(), []models.MCQ{
		{Question: "2+2", Options: []string{"3", "4", "5", "6"}, Answer: "4"},
	})
}

func TestQuizSessionHandler_CreateHidesAnswers(t *testing.T) {
	owner := uuid.New()
	svc := &stubQuizService{session: sampleSession(owner)}
	h := NewQuizSessionHandler(svc, nil)

	rr := httptest.NewRecorder()
	h.Create(rr, withUser(newRequest(http.MethodPost, "/", map[string]string{"job_id": uuid.NewString()}), owner))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Session models.QuizSessionView `json:"session"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Session.Questions[0].Answer != "" {
		t.Fatalf("answers must be hidden before submission")
	}
}

func TestQuizSessionHandler_SelectAnswerValidation(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"missing index", map[string]string{"option": "4"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"index out of range", map[string]interface{}{"question_index": 3, "option": "4"}, http.StatusBadRequest, "INDEX_OUT_OF_RANGE"},
		{"valid", map[string]interface{}{"question_index": 0, "option": "4"}, http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubQuizService{session: sampleSession(owner)}
			h := NewQuizSessionHandler(svc, nil)

			req := withParam(withUser(newRequest(http.MethodPut, "/", tc.body), owner), "id", svc.session.ID.String())
			rr := httptest.NewRecorder()
			h.SelectAnswer(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if tc.wantCode != "" {
				if code := decodeError(t, rr).Code; code != tc.wantCode {
					t.Fatalf("expected %s, got %s", tc.wantCode, code)
				}
			}
		})
	}
}

func TestQuizSessionHandler_SubmitStopsMonitoring(t *testing.T) {
	owner := uuid.New()
	svc := &stubQuizService{session: sampleSession(owner)}
	stopper := &recordingStopper{}
	h := NewQuizSessionHandler(svc, stopper)

	req := withParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), owner), "id", svc.session.ID.String())
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(stopper.stopped) != 1 || stopper.stopped[0] != svc.session.ID {
		t.Fatalf("expected monitoring stopped for the session, got %v", stopper.stopped)
	}
}

func TestQuizSessionHandler_SubmitErrorKeepsMonitoring(t *testing.T) {
	owner := uuid.New()
	svc := &stubQuizService{session: sampleSession(owner), err: models.ErrIncompleteAnswers}
	stopper := &recordingStopper{}
	h := NewQuizSessionHandler(svc, stopper)

	req := withParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), owner), "id", svc.session.ID.String())
	rr := httptest.NewRecorder()
	h.Submit(rr, req)

	if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != "INCOMPLETE_ANSWERS" {
		t.Fatalf("expected INCOMPLETE_ANSWERS, got %d", rr.Code)
	}
	if len(stopper.stopped) != 0 {
		t.Fatalf("a failed submit must not stop monitoring")
	}
}

func TestQuizSessionHandler_IntegrityEvent(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		eventType string
		wantCalls int
		wantCode  int
	}{
		{"tab-hidden", 1, http.StatusOK},
		{"tab-visible", 1, http.StatusOK},
		{"fullscreen-exited", 0, http.StatusOK},
		{"copy-paste", 0, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.eventType, func(t *testing.T) {
			svc := &stubQuizService{session: sampleSession(owner)}
			h := NewQuizSessionHandler(svc, nil)

			req := withParam(withUser(newRequest(http.MethodPost, "/", map[string]string{"type": tc.eventType}), owner), "id", svc.session.ID.String())
			rr := httptest.NewRecorder()
			h.IntegrityEvent(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if svc.visibilityCalls != tc.wantCalls {
				t.Fatalf("expected %d visibility calls, got %d", tc.wantCalls, svc.visibilityCalls)
			}
		})
	}
}

func TestQuizSessionHandler_RepeatedHideCountsOnce(t *testing.T) {
	owner := uuid.New()
	svc := &stubQuizService{session: sampleSession(owner)}
	h := NewQuizSessionHandler(svc, nil)

	post := func(eventType string) int {
		req := withParam(withUser(newRequest(http.MethodPost, "/", map[string]string{"type": eventType}), owner), "id", svc.session.ID.String())
		rr := httptest.NewRecorder()
		h.IntegrityEvent(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", eventType, rr.Code)
		}
		var resp struct {
			IntegrityFlags int `json:"integrity_flags"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.IntegrityFlags
	}

	for i, step := range []struct {
		eventType string
		want      int
	}{
		{"tab-hidden", 1},
		{"tab-hidden", 1},
		{"tab-visible", 1},
		{"tab-hidden", 2},
	} {
		if got := post(step.eventType); got != step.want {
			t.Fatalf("step %d (%s): expected %d flags, got %d", i, step.eventType, step.want, got)
		}
	}
}
