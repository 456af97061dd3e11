package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrIndexOutOfRange   = errors.New("question index out of range")
	ErrIncompleteAnswers = errors.New("every question must be answered before submitting")
	ErrQuizSubmitted     = errors.New("quiz has already been submitted")
)

const (
	QuizStateUnstarted  = "unstarted"
	QuizStateInProgress = "in_progress"
	QuizStateSubmitted  = "submitted"
)

// QuizSession holds a user's answers for one set of generated MCQs.
// Submission is one-way: once Revealed is set nothing else may change.
type QuizSession struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	JobID          uuid.UUID  `json:"job_id"`
	MCQs           []MCQ      `json:"mcqs"`
	Score          *int       `json:"score"`
	CorrectCount   int        `json:"correct_count"`
	Revealed       bool       `json:"revealed"`
	IntegrityFlags int        `json:"integrity_flags"`
	TabHidden      bool       `json:"tab_hidden"`
	CreatedAt      time.Time  `json:"created_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

func NewQuizSession(ownerID, jobID uuid.UUID, mcqs []MCQ) *QuizSession {
	questions := make([]MCQ, len(mcqs))
	for i, q := range mcqs {
		questions[i] = MCQ{
			Question: q.Question,
			Options:  append([]string(nil), q.Options...),
			Answer:   q.Answer,
		}
	}
	return &QuizSession{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		JobID:     jobID,
		MCQs:      questions,
		CreatedAt: time.Now(),
	}
}

// SelectAnswer records option as the answer to question index, replacing any
// earlier choice.
func (s *QuizSession) SelectAnswer(index int, option string) error {
	if s.Revealed {
		return ErrQuizSubmitted
	}
	if index < 0 || index >= len(s.MCQs) {
		return ErrIndexOutOfRange
	}
	s.MCQs[index].UserAnswer = option
	return nil
}

// Submit grades the session. A second call returns the first score unchanged.
func (s *QuizSession) Submit(now time.Time) (int, error) {
	if s.Revealed && s.Score != nil {
		return *s.Score, nil
	}
	if len(s.MCQs) == 0 {
		return 0, ErrIncompleteAnswers
	}

	correct := 0
	for _, q := range s.MCQs {
		if q.UserAnswer == "" {
			return 0, ErrIncompleteAnswers
		}
		if q.UserAnswer == q.Answer {
			correct++
		}
	}

	score := int(math.Round(float64(correct) / float64(len(s.MCQs)) * 100))
	s.Score = &score
	s.CorrectCount = correct
	s.Revealed = true
	s.SubmittedAt = &now
	return score, nil
}

// RecordIntegrityFlag counts one suspicious-activity event. Events after
// submission are ignored.
func (s *QuizSession) RecordIntegrityFlag() bool {
	if s.Revealed {
		return false
	}
	s.IntegrityFlags++
	return true
}

// ReportVisibility records whether the quiz tab is hidden and counts a flag
// only when it goes from visible to hidden. It reports whether a flag was
// counted.
func (s *QuizSession) ReportVisibility(hidden bool) bool {
	if s.Revealed {
		return false
	}
	if !hidden {
		s.TabHidden = false
		return false
	}
	if s.TabHidden {
		return false
	}
	s.TabHidden = true
	s.IntegrityFlags++
	return true
}

func (s *QuizSession) Answered() int {
	n := 0
	for _, q := range s.MCQs {
		if q.UserAnswer != "" {
			n++
		}
	}
	return n
}

func (s *QuizSession) State() string {
	switch {
	case s.Revealed:
		return QuizStateSubmitted
	case s.Answered() > 0:
		return QuizStateInProgress
	default:
		return QuizStateUnstarted
	}
}

type QuizQuestionView struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	UserAnswer string   `json:"user_answer,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	IsCorrect  *bool    `json:"is_correct,omitempty"`
}

type QuizSessionView struct {
	ID             uuid.UUID          `json:"id"`
	JobID          uuid.UUID          `json:"job_id"`
	State          string             `json:"state"`
	Questions      []QuizQuestionView `json:"questions"`
	Answered       int                `json:"answered"`
	Total          int                `json:"total"`
	Score          *int               `json:"score"`
	IntegrityFlags int                `json:"integrity_flags"`
}

// View renders the session for clients. Correct answers stay hidden until
// the session is submitted.
func (s *QuizSession) View() QuizSessionView {
	v := QuizSessionView{
		ID:             s.ID,
		JobID:          s.JobID,
		State:          s.State(),
		Questions:      make([]QuizQuestionView, len(s.MCQs)),
		Answered:       s.Answered(),
		Total:          len(s.MCQs),
		Score:          s.Score,
		IntegrityFlags: s.IntegrityFlags,
	}
	for i, q := range s.MCQs {
		qv := QuizQuestionView{Question: q.Question, Options: q.Options, UserAnswer: q.UserAnswer}
		if s.Revealed {
			qv.Answer = q.Answer
			correct := q.UserAnswer == q.Answer
			qv.IsCorrect = &correct
		}
		v.Questions[i] = qv
	}
	return v
}

type QuizAttempt struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	SessionID      uuid.UUID `json:"session_id"`
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	Total          int       `json:"total"`
	IntegrityFlags int       `json:"integrity_flags"`
	XPAwarded      int       `json:"xp_awarded"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type CreateQuizSessionRequest struct {
	JobID uuid.UUID `json:"job_id" validate:"required"`
}

type SelectAnswerRequest struct {
	QuestionIndex *int   `json:"question_index" validate:"required"`
	Option        string `json:"option" validate:"required"`
}

type IntegrityEventRequest struct {
	Type string `json:"type" validate:"required,oneof=tab-hidden tab-visible fullscreen-entered fullscreen-exited"`
}
