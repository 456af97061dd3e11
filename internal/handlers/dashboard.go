package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/services"
)

type profileGetter interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error)
}

type taskLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error)
}

type courseLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Course, error)
}

type studyTimeReader interface {
	TotalSeconds(ctx context.Context, userID uuid.UUID) (int, error)
}

type attemptLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error)
}

const recentAttemptsLimit = 5

type DashboardHandler struct {
	profiles  profileGetter
	tasks     taskLister
	courses   courseLister
	studyTime studyTimeReader
	attempts  attemptLister
	log       *logger.Logger
}

func NewDashboardHandler(profiles profileGetter, tasks taskLister, courses courseLister, studyTime studyTimeReader,
	attempts attemptLister, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		profiles:  profiles,
		tasks:     tasks,
		courses:   courses,
		studyTime: studyTime,
		attempts:  attempts,
		log:       log.With("handler", "dashboard"),
	}
}

type DashboardResponse struct {
	Profile           *models.UserProfile    `json:"profile"`
	Tasks             []*models.Task         `json:"tasks"`
	Courses           []*models.Course       `json:"courses"`
	StudyPlan         []models.StudyPlanItem `json:"study_plan"`
	RecentQuizzes     []*models.QuizAttempt  `json:"recent_quizzes"`
	TotalStudySeconds int                    `json:"total_study_seconds"`
}

// Get loads everything the dashboard shows in one round trip. The reads are
// independent and run concurrently.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	email := middleware.GetUserEmail(r.Context())

	var resp DashboardResponse
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		p, err := h.profiles.GetOrCreate(ctx, userID, email)
		resp.Profile = p
		return err
	})
	g.Go(func() error {
		t, err := h.tasks.ListByUser(ctx, userID, false)
		resp.Tasks = t
		return err
	})
	g.Go(func() error {
		c, err := h.courses.ListByUser(ctx, userID)
		resp.Courses = c
		return err
	})
	g.Go(func() error {
		s, err := h.studyTime.TotalSeconds(ctx, userID)
		resp.TotalStudySeconds = s
		return err
	})
	g.Go(func() error {
		a, err := h.attempts.ListByUser(ctx, userID, recentAttemptsLimit)
		resp.RecentQuizzes = a
		return err
	})

	if err := g.Wait(); err != nil {
		h.log.Error("failed to load dashboard", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard", r))
		return
	}

	resp.StudyPlan = services.BuildStudyPlan(resp.Courses)
	writeJSON(w, http.StatusOK, resp)
}

// StudyPlan returns today's plan built from the caller's courses.
func (h *DashboardHandler) StudyPlan(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch courses", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plan": services.BuildStudyPlan(courses)})
}
