package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
)

var errMissing = errors.New("missing")

type memSessionStore struct {
	sessions map[uuid.UUID]*models.QuizSession
}

func (m *memSessionStore) Create(ctx context.Context, qs *models.QuizSession) error {
	m.sessions[qs.ID] = qs
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, id uuid.UUID) (*models.QuizSession, error) {
	qs, ok := m.sessions[id]
	if !ok {
		return nil, errMissing
	}
	return qs, nil
}

func (m *memSessionStore) Update(ctx context.Context, id uuid.UUID, fn func(*models.QuizSession) error) (*models.QuizSession, error) {
	qs, ok := m.sessions[id]
	if !ok {
		return nil, errMissing
	}
	if err := fn(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// stubAttempts keeps one attempt per session, like the unique index on
// quiz_attempts.session_id.
type stubAttempts struct {
	recorded []*models.QuizAttempt
}

func (s *stubAttempts) RecordAttempt(ctx context.Context, a *models.QuizAttempt, levelFor func(int) int) (bool, error) {
	for _, r := range s.recorded {
		if r.SessionID == a.SessionID {
			return false, nil
		}
	}
	s.recorded = append(s.recorded, a)
	return true, nil
}

type stubProfiles struct{ calls int }

func (s *stubProfiles) GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error) {
	s.calls++
	return &models.UserProfile{UserID: userID, Email: email}, nil
}

type stubJobs struct{ job *models.Job }

func (s *stubJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.job == nil || s.job.ID != id {
		return nil, errMissing
	}
	return s.job, nil
}

type stubMaterials struct{ m *models.StudyMaterials }

func (s *stubMaterials) Get(ctx context.Context, jobID uuid.UUID) (*models.StudyMaterials, error) {
	if s.m == nil {
		return nil, errMissing
	}
	return s.m, nil
}

func sampleMCQs() []models.MCQ {
	answers := []string{"A", "B", "C", "D", "A"}
	mcqs := make([]models.MCQ, len(answers))
	for i, a := range answers {
		mcqs[i] = models.MCQ{Question: "Q", Options: []string{"A", "B", "C", "D"}, Answer: a}
	}
	return mcqs
}

type quizFixture struct {
	svc      *QuizService
	store    *memSessionStore
	attempts *stubAttempts
	job      *models.Job
	owner    uuid.UUID
}

func newQuizFixture(status string) *quizFixture {
	owner := uuid.New()
	job := &models.Job{ID: uuid.New(), UserID: owner, Status: status}
	f := &quizFixture{
		store:    &memSessionStore{sessions: map[uuid.UUID]*models.QuizSession{}},
		attempts: &stubAttempts{},
		job:      job,
		owner:    owner,
	}
	f.svc = NewQuizService(f.store, f.attempts, &stubProfiles{}, &stubJobs{job: job},
		&stubMaterials{m: &models.StudyMaterials{MCQs: sampleMCQs()}}, logger.Nop())
	f.svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return f
}

func TestQuizService_CreateSession(t *testing.T) {
	f := newQuizFixture(models.JobStatusCompleted)

	qs, err := f.svc.CreateSession(context.Background(), f.owner, f.job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs.MCQs) != 5 || qs.JobID != f.job.ID {
		t.Fatalf("unexpected session %+v", qs)
	}

	var forbidden *ForbiddenError
	if _, err := f.svc.CreateSession(context.Background(), uuid.New(), f.job.ID); !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
}

func TestQuizService_CreateSessionBeforeCompletion(t *testing.T) {
	f := newQuizFixture(models.JobStatusProcessing)

	var conflict *ConflictError
	if _, err := f.svc.CreateSession(context.Background(), f.owner, f.job.ID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestQuizService_SubmitFlow(t *testing.T) {
	f := newQuizFixture(models.JobStatusCompleted)
	ctx := context.Background()
	qs, _ := f.svc.CreateSession(ctx, f.owner, f.job.ID)

	if _, err := f.svc.Submit(ctx, f.owner, "a@b.c", qs.ID); !errors.Is(err, models.ErrIncompleteAnswers) {
		t.Fatalf("expected incomplete answers, got %v", err)
	}

	for i, opt := range []string{"A", "B", "C", "A", "B"} {
		if _, err := f.svc.SelectAnswer(ctx, f.owner, qs.ID, i, opt); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
	}
	if _, err := f.svc.SelectAnswer(ctx, f.owner, qs.ID, 9, "A"); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected index out of range, got %v", err)
	}

	if n, err := f.svc.RecordIntegrityFlag(ctx, f.owner, qs.ID); err != nil || n != 1 {
		t.Fatalf("expected one flag, got %d, %v", n, err)
	}

	res, err := f.svc.Submit(ctx, f.owner, "a@b.c", qs.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 60 || res.XPAwarded != 50 {
		t.Fatalf("expected score 60 and 50 xp, got %d and %d", res.Score, res.XPAwarded)
	}
	if len(f.attempts.recorded) != 1 || f.attempts.recorded[0].IntegrityFlags != 1 {
		t.Fatalf("expected one recorded attempt with one flag, got %+v", f.attempts.recorded)
	}

	if _, err := f.svc.SelectAnswer(ctx, f.owner, qs.ID, 0, "D"); !errors.Is(err, models.ErrQuizSubmitted) {
		t.Fatalf("expected answers to be locked, got %v", err)
	}
	if err := f.svc.CanMonitor(ctx, f.owner, qs.ID); !errors.Is(err, models.ErrQuizSubmitted) {
		t.Fatalf("submitted quiz must not be monitored, got %v", err)
	}

	again, err := f.svc.Submit(ctx, f.owner, "a@b.c", qs.ID)
	if err != nil || again.Score != 60 {
		t.Fatalf("second submit must return the first score, got %+v, %v", again, err)
	}
	if again.XPAwarded != 0 {
		t.Fatalf("second submit must not report xp again, got %d", again.XPAwarded)
	}
	if len(f.attempts.recorded) != 1 {
		t.Fatalf("expected a single recorded attempt, got %d", len(f.attempts.recorded))
	}

	if _, err := f.svc.RecordIntegrityFlag(ctx, f.owner, qs.ID); !errors.Is(err, models.ErrQuizSubmitted) {
		t.Fatalf("flag after submit: expected quiz submitted, got %v", err)
	}
	if _, err := f.svc.ReportVisibility(ctx, f.owner, qs.ID, true); !errors.Is(err, models.ErrQuizSubmitted) {
		t.Fatalf("hide after submit: expected quiz submitted, got %v", err)
	}
	if n, err := f.svc.ReportVisibility(ctx, f.owner, qs.ID, false); err != nil || n != 1 {
		t.Fatalf("visible after submit: expected 1 flag and no error, got %d, %v", n, err)
	}
}

func TestQuizService_ReportVisibilityDeduplicatesHides(t *testing.T) {
	f := newQuizFixture(models.JobStatusCompleted)
	ctx := context.Background()
	qs, _ := f.svc.CreateSession(ctx, f.owner, f.job.ID)

	for i, step := range []struct {
		hidden bool
		want   int
	}{
		{true, 1},
		{true, 1},
		{false, 1},
		{true, 2},
	} {
		n, err := f.svc.ReportVisibility(ctx, f.owner, qs.ID, step.hidden)
		if err != nil || n != step.want {
			t.Fatalf("step %d: expected %d flags, got %d, %v", i, step.want, n, err)
		}
	}
}

func TestQuizService_OtherUserIsForbidden(t *testing.T) {
	f := newQuizFixture(models.JobStatusCompleted)
	ctx := context.Background()
	qs, _ := f.svc.CreateSession(ctx, f.owner, f.job.ID)
	intruder := uuid.New()

	var forbidden *ForbiddenError
	if _, err := f.svc.Get(ctx, intruder, qs.ID); !errors.As(err, &forbidden) {
		t.Fatalf("get: expected forbidden, got %v", err)
	}
	if _, err := f.svc.SelectAnswer(ctx, intruder, qs.ID, 0, "A"); !errors.As(err, &forbidden) {
		t.Fatalf("select: expected forbidden, got %v", err)
	}
	if _, err := f.svc.RecordIntegrityFlag(ctx, intruder, qs.ID); !errors.As(err, &forbidden) {
		t.Fatalf("flag: expected forbidden, got %v", err)
	}
	if qs.MCQs[0].UserAnswer != "" || qs.IntegrityFlags != 0 {
		t.Fatalf("session must be untouched")
	}
}
