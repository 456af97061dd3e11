package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Bearer tokens are issued by the hosted auth service and signed with this secret.
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Storage
	StorageType   string // "local" | "gcs"
	StoragePath   string
	GCSBucket     string
	PublicBaseURL string
	MaxUploadMB   int

	// Workers
	WorkerCount int

	// Transient state
	HandoffTTL     time.Duration
	QuizSessionTTL time.Duration
	MaterialsTTL   time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		StorageType:          getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:          getEnvOrDefault("STORAGE_PATH", "./uploads"),
		GCSBucket:            getEnvOrDefault("GCS_BUCKET", ""),
		PublicBaseURL:        getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 25),
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 5),
		HandoffTTL:           getEnvAsDurationOrDefault("HANDOFF_TTL", 15*time.Minute),
		QuizSessionTTL:       getEnvAsDurationOrDefault("QUIZ_SESSION_TTL", 24*time.Hour),
		MaterialsTTL:         getEnvAsDurationOrDefault("MATERIALS_TTL", time.Hour),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	if cfg.StorageType == "gcs" && cfg.GCSBucket == "" {
		panic("GCS_BUCKET is required when STORAGE_TYPE=gcs")
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("15m", "1h").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
