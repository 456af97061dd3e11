package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
)

type quizSessionStore interface {
	Create(ctx context.Context, qs *models.QuizSession) error
	Get(ctx context.Context, id uuid.UUID) (*models.QuizSession, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.QuizSession) error) (*models.QuizSession, error)
}

type quizAttemptRecorder interface {
	RecordAttempt(ctx context.Context, a *models.QuizAttempt, levelFor func(xp int) int) (bool, error)
}

type profileProvisioner interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error)
}

type jobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type materialsReader interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.StudyMaterials, error)
}

// QuizResult is returned from a submission.
type QuizResult struct {
	Session   models.QuizSessionView `json:"session"`
	Score     int                    `json:"score"`
	XPAwarded int                    `json:"xp_awarded"`
}

// QuizService owns quiz sessions built from generated MCQs. Sessions live in
// the session store until they expire; only submitted attempts are durable.
type QuizService struct {
	sessions  quizSessionStore
	attempts  quizAttemptRecorder
	profiles  profileProvisioner
	jobs      jobReader
	materials materialsReader
	log       *logger.Logger
	now       func() time.Time
}

func NewQuizService(sessions quizSessionStore, attempts quizAttemptRecorder, profiles profileProvisioner,
	jobs jobReader, materials materialsReader, log *logger.Logger) *QuizService {
	return &QuizService{
		sessions:  sessions,
		attempts:  attempts,
		profiles:  profiles,
		jobs:      jobs,
		materials: materials,
		log:       log.With("service", "QuizService"),
		now:       time.Now,
	}
}

func forbiddenQuiz() error {
	return &ForbiddenError{Message: "You do not have access to this quiz"}
}

// CreateSession starts a quiz over the MCQs produced by a completed job.
func (s *QuizService) CreateSession(ctx context.Context, userID, jobID uuid.UUID) (*models.QuizSession, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, forbiddenQuiz()
	}
	if job.Status != models.JobStatusCompleted {
		return nil, &ConflictError{Message: "Study materials are not ready yet"}
	}

	materials, err := s.materials.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(materials.MCQs) == 0 {
		return nil, &ConflictError{Message: "These study materials have no quiz questions"}
	}

	qs := models.NewQuizSession(userID, jobID, materials.MCQs)
	if err := s.sessions.Create(ctx, qs); err != nil {
		return nil, fmt.Errorf("failed to store quiz session: %w", err)
	}
	return qs, nil
}

func (s *QuizService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.QuizSession, error) {
	qs, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if qs.OwnerID != userID {
		return nil, forbiddenQuiz()
	}
	return qs, nil
}

func (s *QuizService) update(ctx context.Context, userID, sessionID uuid.UUID, fn func(*models.QuizSession) error) (*models.QuizSession, error) {
	return s.sessions.Update(ctx, sessionID, func(qs *models.QuizSession) error {
		if qs.OwnerID != userID {
			return forbiddenQuiz()
		}
		return fn(qs)
	})
}

func (s *QuizService) SelectAnswer(ctx context.Context, userID, sessionID uuid.UUID, index int, option string) (*models.QuizSession, error) {
	qs, err := s.update(ctx, userID, sessionID, func(qs *models.QuizSession) error {
		return qs.SelectAnswer(index, option)
	})
	if err != nil {
		if errors.Is(err, models.ErrIndexOutOfRange) {
			s.log.Warn("answer index out of range", "session_id", sessionID, "index", index)
		}
		return nil, err
	}
	return qs, nil
}

// Submit grades the session, records the attempt and credits XP. Submitting
// again returns the first result without crediting XP twice.
func (s *QuizService) Submit(ctx context.Context, userID uuid.UUID, email string, sessionID uuid.UUID) (*QuizResult, error) {
	var score int
	qs, err := s.update(ctx, userID, sessionID, func(qs *models.QuizSession) error {
		var err error
		score, err = qs.Submit(s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetOrCreate(ctx, userID, email); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	attempt := &models.QuizAttempt{
		UserID:         userID,
		SessionID:      qs.ID,
		Score:          score,
		CorrectCount:   qs.CorrectCount,
		Total:          len(qs.MCQs),
		IntegrityFlags: qs.IntegrityFlags,
		XPAwarded:      QuizXP(score, qs.IntegrityFlags),
		SubmittedAt:    *qs.SubmittedAt,
	}
	inserted, err := s.attempts.RecordAttempt(ctx, attempt, LevelForXP)
	if err != nil {
		return nil, fmt.Errorf("failed to record quiz attempt: %w", err)
	}
	if !inserted {
		return &QuizResult{Session: qs.View(), Score: score}, nil
	}

	s.log.Info("quiz submitted", "session_id", qs.ID, "user_id", userID, "score", score, "integrity_flags", qs.IntegrityFlags)

	return &QuizResult{Session: qs.View(), Score: score, XPAwarded: attempt.XPAwarded}, nil
}

// RecordIntegrityFlag counts one tab switch against the session and returns
// the new total. Submitted sessions return models.ErrQuizSubmitted.
func (s *QuizService) RecordIntegrityFlag(ctx context.Context, userID, sessionID uuid.UUID) (int, error) {
	qs, err := s.update(ctx, userID, sessionID, func(qs *models.QuizSession) error {
		if !qs.RecordIntegrityFlag() {
			return models.ErrQuizSubmitted
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qs.IntegrityFlags, nil
}

// ReportVisibility applies a tab visibility change reported over HTTP. Only a
// visible to hidden transition is counted, so a repeated hide costs nothing.
func (s *QuizService) ReportVisibility(ctx context.Context, userID, sessionID uuid.UUID, hidden bool) (int, error) {
	qs, err := s.update(ctx, userID, sessionID, func(qs *models.QuizSession) error {
		if hidden && qs.Revealed {
			return models.ErrQuizSubmitted
		}
		qs.ReportVisibility(hidden)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return qs.IntegrityFlags, nil
}

// CanMonitor reports whether userID may attach an integrity monitor to the
// session.
func (s *QuizService) CanMonitor(ctx context.Context, userID, sessionID uuid.UUID) error {
	qs, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if qs.Revealed {
		return models.ErrQuizSubmitted
	}
	return nil
}
