package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Workflow WorkflowConfig
	Session  SessionConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OpsTopic           string
}

type DatabaseConfig struct {
	Connection string
}

type WorkflowConfig struct {
	// MaxRetries caps failed generation attempts per unit.
	MaxRetries int
	// ReviewRequired pauses failed evaluations for a human instead of
	// regenerating automatically.
	ReviewRequired bool
	// GenerationTimeout bounds one model call.
	GenerationTimeout time.Duration
	// PassThreshold is the minimum overall evaluation score.
	PassThreshold float64
	// CheckpointCacheTTL bounds the Redis read-through cache.
	CheckpointCacheTTL time.Duration
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	MaxLifetime   time.Duration
	SweepInterval time.Duration
	CacheTTL      time.Duration
}

type AIConfig struct {
	OllamaBaseURL string
	OllamaModel   string
	LLMProvider   string // "ollama", "openai", etc
	LLMModel      string // e.g. "llama3", "qwen2.5"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OpsTopic:           getEnv("WORKFLOW_OPS_TOPIC_NAME", "WORKFLOW_OPS"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Workflow: WorkflowConfig{
			MaxRetries:         getEnvAsInt("WORKFLOW_MAX_RETRIES", 3),
			ReviewRequired:     getEnvAsBool("WORKFLOW_REVIEW_REQUIRED", true),
			GenerationTimeout:  getEnvAsDuration("WORKFLOW_GENERATION_TIMEOUT", 2*time.Minute),
			PassThreshold:      getEnvAsFloat("WORKFLOW_PASS_THRESHOLD", 0.7),
			CheckpointCacheTTL: getEnvAsDuration("CHECKPOINT_CACHE_TTL", 15*time.Minute),
		},
		Session: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			MaxLifetime:   getEnvAsDuration("SESSION_MAX_LIFETIME", 24*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			CacheTTL:      getEnvAsDuration("SESSION_CACHE_TTL", time.Hour),
		},
		Ai: AIConfig{
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
