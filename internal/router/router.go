package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studybuddy-backend/internal/handlers"
	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/websocket"
)

// Limiters throttle the routes that call the model.
type Limiters struct {
	Tutor    *middleware.RateLimiter
	Generate *middleware.RateLimiter
}

func New(
	log *logger.Logger,
	jwtAuth *middleware.JWTAuth,
	limiters Limiters,
	documentHandler *handlers.DocumentHandler,
	materialsHandler *handlers.MaterialsHandler,
	quizSessionHandler *handlers.QuizSessionHandler,
	profileHandler *handlers.ProfileHandler,
	courseHandler *handlers.CourseHandler,
	taskHandler *handlers.TaskHandler,
	studySessionHandler *handlers.StudySessionHandler,
	dashboardHandler *handlers.DashboardHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	tutorHandler *handlers.TutorHandler,
	wsHub *websocket.Hub,
	filesDir string,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Uploaded documents are served from disk when storage is local.
	if filesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(filesDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Leaderboard (public) ────
		r.Get("/leaderboard", leaderboardHandler.Get)

		// ──── WebSocket (token in query string) ────
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Document Routes ────
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", documentHandler.Upload)
				r.Get("/", documentHandler.List)
				r.Delete("/{id}", documentHandler.Delete)
				r.With(limiters.Generate.Middleware).Post("/{id}/analyze", documentHandler.Analyze)
			})

			// ──── Study Material Routes ────
			r.Route("/study-materials", func(r chi.Router) {
				r.With(limiters.Generate.Middleware).Post("/generate", materialsHandler.Generate)
				r.Get("/{jobId}", materialsHandler.Get)
			})

			// ──── Quiz Session Routes ────
			r.Route("/quiz-sessions", func(r chi.Router) {
				r.Post("/", quizSessionHandler.Create)
				r.Get("/{id}", quizSessionHandler.Get)
				r.Put("/{id}/answers", quizSessionHandler.SelectAnswer)
				r.Post("/{id}/submit", quizSessionHandler.Submit)
				r.Post("/{id}/integrity-events", quizSessionHandler.IntegrityEvent)
			})

			// ──── Profile Routes ────
			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Update)

			// ──── Course & Task Routes ────
			r.Route("/courses", func(r chi.Router) {
				r.Get("/", courseHandler.List)
				r.Post("/", courseHandler.Create)
				r.Put("/{id}", courseHandler.Update)
				r.Delete("/{id}", courseHandler.Delete)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})

			// ──── Study Session Routes ────
			r.Route("/study-sessions", func(r chi.Router) {
				r.Post("/start", studySessionHandler.Start)
				r.Post("/{id}/heartbeat", studySessionHandler.Heartbeat)
				r.Post("/{id}/stop", studySessionHandler.Stop)
			})

			// ──── Dashboard Routes ────
			r.Get("/dashboard", dashboardHandler.Get)
			r.Get("/study-plan", dashboardHandler.StudyPlan)

			// ──── Tutor Routes ────
			r.With(limiters.Tutor.Middleware).Post("/tutor/chat", tutorHandler.Chat)
		})
	})

	return r
}
