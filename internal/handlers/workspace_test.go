package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/models"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/services"
)

type stubProfiles struct {
	profile   *models.UserProfile
	updateErr error
	streak    int
	limit     int
}

func (s *stubProfiles) GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.UserProfile, error) {
	if s.profile == nil {
		s.profile = &models.UserProfile{UserID: userID, Email: email, Username: "student-abcdef", Level: 1}
	}
	cp := *s.profile
	return &cp, nil
}

func (s *stubProfiles) Update(ctx context.Context, p *models.UserProfile) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.profile = p
	return nil
}

func (s *stubProfiles) TouchLogin(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.streak, nil
}

func (s *stubProfiles) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.limit = limit
	return []models.LeaderboardEntry{{Rank: 1, Username: "ada", XP: 300}}, nil
}

func TestProfileHandler_GetReportsStreak(t *testing.T) {
	h := NewProfileHandler(&stubProfiles{streak: 4}, logger.Nop())

	rr := httptest.NewRecorder()
	h.Get(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	var resp struct {
		Profile models.UserProfile `json:"profile"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if rr.Code != http.StatusOK || resp.Profile.LoginStreak != 4 {
		t.Fatalf("expected streak 4, got %d %+v", rr.Code, resp.Profile)
	}
}

func TestProfileHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]interface{}
		updateErr  error
		wantStatus int
	}{
		{"partial update", map[string]interface{}{"name": "Ada", "semester": 3}, nil, http.StatusOK},
		{"semester out of range", map[string]interface{}{"semester": 13}, nil, http.StatusBadRequest},
		{"username taken", map[string]interface{}{"username": "grace"}, repository.ErrUsernameTaken, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profiles := &stubProfiles{updateErr: tc.updateErr}
			h := NewProfileHandler(profiles, logger.Nop())

			rr := httptest.NewRecorder()
			h.Update(rr, withUser(newRequest(http.MethodPut, "/", tc.body), uuid.New()))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if tc.wantStatus == http.StatusOK && (profiles.profile.Name != "Ada" || *profiles.profile.Semester != 3) {
				t.Fatalf("fields not applied: %+v", profiles.profile)
			}
		})
	}
}

func TestLeaderboardHandler_ClampsLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"?limit=25", 25},
		{"?limit=-3", 10},
		{"?limit=abc", 10},
		{"?limit=5000", 100},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			profiles := &stubProfiles{}
			h := NewLeaderboardHandler(profiles)

			rr := httptest.NewRecorder()
			h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard"+tc.query, nil))

			if rr.Code != http.StatusOK || profiles.limit != tc.want {
				t.Fatalf("expected limit %d, got %d (status %d)", tc.want, profiles.limit, rr.Code)
			}
		})
	}
}

type stubCourses struct {
	courses []*models.Course
	err     error
}

func (s *stubCourses) Create(ctx context.Context, c *models.Course) error {
	c.ID = uuid.New()
	s.courses = append(s.courses, c)
	return nil
}

func (s *stubCourses) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Course, error) {
	return s.courses, s.err
}

func (s *stubCourses) Update(ctx context.Context, c *models.Course) error { return s.err }

func (s *stubCourses) Delete(ctx context.Context, id, userID uuid.UUID) error { return s.err }

func TestCourseHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantField  string
	}{
		{"valid", map[string]interface{}{"course_name": "  Data Structures ", "progress": 40}, http.StatusCreated, ""},
		{"blank name", map[string]interface{}{"course_name": "   "}, http.StatusBadRequest, "course_name"},
		{"progress above 100", map[string]interface{}{"course_name": "DS", "progress": 101}, http.StatusBadRequest, "progress"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			courses := &stubCourses{}
			h := NewCourseHandler(courses)

			rr := httptest.NewRecorder()
			h.Create(rr, withUser(newRequest(http.MethodPost, "/", tc.body), uuid.New()))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if tc.wantField != "" {
				if _, ok := decodeError(t, rr).Fields[tc.wantField]; !ok {
					t.Fatalf("expected a %s field error", tc.wantField)
				}
				return
			}
			if courses.courses[0].CourseName != "Data Structures" {
				t.Fatalf("expected trimmed name, got %q", courses.courses[0].CourseName)
			}
		})
	}
}

func TestCourseHandler_DeleteUnknown(t *testing.T) {
	h := NewCourseHandler(&stubCourses{err: repository.ErrNotFound})

	req := withParam(withUser(httptest.NewRequest(http.MethodDelete, "/", nil), uuid.New()), "id", uuid.NewString())
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

type stubTasks struct{ includeCompleted bool }

func (s *stubTasks) ListByUser(ctx context.Context, userID uuid.UUID, includeCompleted bool) ([]*models.Task, error) {
	s.includeCompleted = includeCompleted
	return []*models.Task{{ID: uuid.New(), Title: "Read chapter 3"}}, nil
}

type fixedStudyTime struct {
	seconds int
	err     error
}

func (f fixedStudyTime) TotalSeconds(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.seconds, f.err
}

type stubAttempts struct{ limit int }

func (s *stubAttempts) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizAttempt, error) {
	s.limit = limit
	return []*models.QuizAttempt{{ID: uuid.New(), Score: 80}}, nil
}

func TestDashboardHandler_Get(t *testing.T) {
	courses := &stubCourses{courses: []*models.Course{
		{ID: uuid.New(), CourseName: "Physics", Progress: 20},
		{ID: uuid.New(), CourseName: "History", Progress: 90},
	}}
	tasks := &stubTasks{}
	attempts := &stubAttempts{}
	h := NewDashboardHandler(&stubProfiles{}, tasks, courses, fixedStudyTime{seconds: 5400}, attempts, logger.Nop())

	rr := httptest.NewRecorder()
	h.Get(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp DashboardResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	if resp.Profile == nil || len(resp.Tasks) != 1 || len(resp.Courses) != 2 || resp.TotalStudySeconds != 5400 {
		t.Fatalf("unexpected dashboard %+v", resp)
	}
	if len(resp.RecentQuizzes) != 1 || attempts.limit != 5 {
		t.Fatalf("expected the five most recent attempts to be requested, got %d (limit %d)", len(resp.RecentQuizzes), attempts.limit)
	}
	if tasks.includeCompleted {
		t.Fatalf("dashboard lists open tasks only")
	}
	want := services.BuildStudyPlan(courses.courses)
	if len(resp.StudyPlan) != len(want) {
		t.Fatalf("expected %d plan items, got %d", len(want), len(resp.StudyPlan))
	}
}

func TestDashboardHandler_GetFailsWhenAnyReadFails(t *testing.T) {
	h := NewDashboardHandler(&stubProfiles{}, &stubTasks{}, &stubCourses{}, fixedStudyTime{err: errors.New("db down")}, &stubAttempts{}, logger.Nop())

	rr := httptest.NewRecorder()
	h.Get(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

type stubTutorConversation struct {
	history []models.ChatMessage
	reply   string
	err     error
	sent    string
}

func (c *stubTutorConversation) NewTutorConversation(history []models.ChatMessage) services.Conversation {
	c.history = history
	return c
}

func (c *stubTutorConversation) Send(ctx context.Context, message string) (string, error) {
	c.sent = message
	return c.reply, c.err
}

func TestTutorHandler_Chat(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantCode   string
	}{
		{"answers with history", models.ChatRequest{
			Message: "  and in plants? ",
			History: []models.ChatMessage{{Role: "user", Content: "what is ATP?"}, {Role: "assistant", Content: "energy"}},
		}, nil, http.StatusOK, ""},
		{"blank message", map[string]string{"message": "  "}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"model unavailable", map[string]string{"message": "hi"}, errors.New("quota"), http.StatusBadGateway, "TUTOR_UNAVAILABLE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := &stubTutorConversation{reply: "Photosynthesis makes it.", err: tc.err}
			h := NewTutorHandler(conv, logger.Nop())

			rr := httptest.NewRecorder()
			h.Chat(rr, withUser(newRequest(http.MethodPost, "/", tc.body), uuid.New()))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if tc.wantCode != "" {
				if code := decodeError(t, rr).Code; code != tc.wantCode {
					t.Fatalf("expected %s, got %s", tc.wantCode, code)
				}
				return
			}
			if conv.sent != "and in plants?" || len(conv.history) != 2 {
				t.Fatalf("unexpected tutor call: sent %q with %d history turns", conv.sent, len(conv.history))
			}
		})
	}
}

type stubStudySessions struct {
	started *models.StudySession
	err     error
}

func (s *stubStudySessions) Start(ctx context.Context, ss *models.StudySession) error {
	ss.ID = uuid.New()
	s.started = ss
	return nil
}

func (s *stubStudySessions) Heartbeat(ctx context.Context, sessionID, userID uuid.UUID) error {
	return s.err
}

func (s *stubStudySessions) Stop(ctx context.Context, sessionID, userID uuid.UUID) error {
	return s.err
}

func TestStudySessionHandler_Start(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"activity_type": "quiz", "resource_id": uuid.NewString()}, http.StatusCreated},
		{"unknown activity", map[string]string{"activity_type": "gaming", "resource_id": uuid.NewString()}, http.StatusBadRequest},
		{"bad resource id", map[string]string{"activity_type": "pdf", "resource_id": "x"}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubStudySessions{}
			h := NewStudySessionHandler(repo)

			rr := httptest.NewRecorder()
			h.Start(rr, withUser(newRequest(http.MethodPost, "/", tc.body), uuid.New()))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			if rr.Code == http.StatusCreated && string(repo.started.ClientMetaJSON) != "{}" {
				t.Fatalf("expected empty client meta object, got %s", repo.started.ClientMetaJSON)
			}
		})
	}
}

func TestStudySessionHandler_HeartbeatUnknownSession(t *testing.T) {
	h := NewStudySessionHandler(&stubStudySessions{err: repository.ErrNotFound})

	req := withParam(withUser(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()), "id", uuid.NewString())
	rr := httptest.NewRecorder()
	h.Heartbeat(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
