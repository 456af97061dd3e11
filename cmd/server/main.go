package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studybuddy-backend/internal/config"
	"studybuddy-backend/internal/database"
	"studybuddy-backend/internal/handlers"
	"studybuddy-backend/internal/logger"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/router"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/storage"
	"studybuddy-backend/internal/websocket"
	"studybuddy-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting StudyBuddy backend", "env", cfg.Env)

	ctx := context.Background()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", "error", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", "error", err)
	}
	defer redisClients.Close()
	log.Info("redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("database migration failed", "error", err)
	}

	// ──── Step 5: Initialize Object Storage ────
	var (
		store    storage.DocumentStore
		filesDir string
	)
	switch cfg.StorageType {
	case "gcs":
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.PublicBaseURL)
		if err != nil {
			log.Fatal("gcs initialization failed", "bucket", cfg.GCSBucket, "error", err)
		}
		defer gcs.Close()
		store = gcs
	default:
		local, err := storage.NewLocalStore(cfg.StoragePath, cfg.PublicBaseURL)
		if err != nil {
			log.Fatal("local storage initialization failed", "path", cfg.StoragePath, "error", err)
		}
		store = local
		filesDir = local.Root()
	}
	log.Info("object storage ready", "type", cfg.StorageType)

	// ──── Initialize Repositories ────
	documentRepo := repository.NewDocumentRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	studySessionRepo := repository.NewStudySessionRepo(pool)

	handoffStore := repository.NewHandoffStore(redisClients.Queue, cfg.HandoffTTL)
	materialsStore := repository.NewMaterialsStore(redisClients.Queue, cfg.MaterialsTTL)
	quizSessionStore := repository.NewQuizSessionStore(redisClients.Queue, cfg.QuizSessionTTL)
	generationSequence := repository.NewGenerationSequence(redisClients.Queue)

	// ──── Step 6: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(ctx, log, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatal("gemini client initialization failed", "error", err)
	}
	defer geminiService.Close()
	log.Info("gemini client initialized", "model", cfg.GeminiModel)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	fileExtractService := services.NewFileExtractService()
	pipeline := services.NewStudyMaterialPipeline(log)
	publisher := services.NewPublisher(redisClients.PubSub, log)
	quizService := services.NewQuizService(quizSessionStore, quizRepo, profileRepo, jobRepo, materialsStore, log)
	sessionSweeper := services.NewSessionSweeper(studySessionRepo, log)
	orphanCollector := services.NewOrphanCollector(store, documentRepo, log)

	// ──── Step 7: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, worker.Deps{
		Jobs:          jobRepo,
		Documents:     documentRepo,
		Store:         store,
		Extractor:     fileExtractService,
		Pipeline:      pipeline,
		Conversations: geminiService,
		Materials:     materialsStore,
		Sequence:      generationSequence,
		Publisher:     publisher,
	}, log, cfg.WorkerCount)
	workerPool.Start()
	jobQueue := worker.NewQueue(redisClients.Queue)

	sessionSweeper.Start()
	orphanCollector.Start()

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, quizService, cfg.FrontendURL, log)

	// ──── Initialize Handlers ────
	maxUpload := int64(cfg.MaxUploadMB) << 20
	documentHandler := handlers.NewDocumentHandler(documentRepo, store, fileExtractService, pipeline, geminiService, handoffStore, maxUpload, log)
	materialsHandler := handlers.NewMaterialsHandler(jobRepo, documentRepo, handoffStore, generationSequence, materialsStore, jobQueue, log)
	quizSessionHandler := handlers.NewQuizSessionHandler(quizService, wsHub)
	profileHandler := handlers.NewProfileHandler(profileRepo, log)
	courseHandler := handlers.NewCourseHandler(courseRepo)
	taskHandler := handlers.NewTaskHandler(taskRepo)
	studySessionHandler := handlers.NewStudySessionHandler(studySessionRepo)
	dashboardHandler := handlers.NewDashboardHandler(profileRepo, taskRepo, courseRepo, studySessionRepo, quizRepo, log)
	leaderboardHandler := handlers.NewLeaderboardHandler(profileRepo)
	tutorHandler := handlers.NewTutorHandler(geminiService, log)

	limiters := router.Limiters{
		Tutor:    middleware.NewRateLimiter(20, time.Minute),
		Generate: middleware.NewRateLimiter(10, time.Minute),
	}

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		log,
		jwtAuth,
		limiters,
		documentHandler,
		materialsHandler,
		quizSessionHandler,
		profileHandler,
		courseHandler,
		taskHandler,
		studySessionHandler,
		dashboardHandler,
		leaderboardHandler,
		tutorHandler,
		wsHub,
		filesDir,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		workerPool.Stop()
		sessionSweeper.Stop()
		orphanCollector.Stop()
		limiters.Tutor.Stop()
		limiters.Generate.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("http shutdown incomplete", "error", err)
		}
	}()

	log.Info("StudyBuddy backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", "error", err)
	}
}
