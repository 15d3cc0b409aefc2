package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Database configuration
	Database struct {
		URL       string
		DebugMode bool // in-memory SQLite instead of Postgres
		MaxConns  int
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		AllowedOrigins []string
		RateLimit      float64
		RateLimitBurst int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// RAG pipeline configuration
	RAG struct {
		ChromaURL      string
		Namespace      string
		EmbeddingModel string
		ChatModel      string
		TopK           int
		Rerank         bool
		Timeout        time.Duration
		MaxRetries     int
	}

	// Cache settings
	Cache struct {
		Enabled  bool
		RedisURL string
		TTL      time.Duration
	}

	// OpenAPI request validation
	Validation struct {
		SchemaPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		instance.Server.Port = getEnvString("PORT", "8000")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 60*time.Second)

		instance.Database.URL = getEnvString("DATABASE_URL", "host=localhost port=5432 user=postgres password=postgres dbname=nutrichat sslmode=disable")
		instance.Database.DebugMode = getEnvBool("DEBUG_MODE", false)
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		instance.JWT.Secret = getEnvString("SECRET_KEY", "")
		instance.JWT.Expiry = getEnvDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute)

		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"http://localhost:4200"})
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)

		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		instance.RAG.ChromaURL = getEnvString("CHROMA_URL", "http://localhost:8000")
		instance.RAG.Namespace = getEnvString("CHROMA_NAMESPACE", "dining-hall-foods")
		instance.RAG.EmbeddingModel = getEnvString("EMBEDDING_MODEL", "text-embedding-3-small")
		instance.RAG.ChatModel = getEnvString("CHAT_MODEL", "gpt-4o-mini")
		instance.RAG.TopK = getEnvInt("RETRIEVAL_TOP_K", 20)
		instance.RAG.Rerank = getEnvBool("RETRIEVAL_RERANK", true)
		instance.RAG.Timeout = getEnvDuration("GENERATION_TIMEOUT", 30*time.Second)
		instance.RAG.MaxRetries = getEnvInt("GENERATION_MAX_RETRIES", 2)

		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.RedisURL = getEnvString("REDIS_URL", "")
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)

		instance.Validation.SchemaPath = getEnvString("OPENAPI_SCHEMA", "")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
