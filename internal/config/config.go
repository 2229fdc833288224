package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cloud     CloudConfig
	Local     LocalConfig
	LLM       LLMConfig
	Qdrant    QdrantConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Log       LogConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// CloudConfig selects the hosted completion provider. Provider is "openai" or "gemini".
type CloudConfig struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

type LocalConfig struct {
	URL   string
	Model string
}

type LLMConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	StrictJSON  bool
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	UserRPM      int
	GlobalRPM    int
	SafetyMargin int
}

type StorageConfig struct {
	ExportPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

type LogConfig struct {
	File string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "resumeiq"),
			SQLitePath: getEnv("SQLITE_PATH", "./resumeiq.db"),
		},
		Cloud: CloudConfig{
			Provider:      strings.ToLower(getEnv("CLOUD_PROVIDER", "openai")),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		},
		Local: LocalConfig{
			URL:   strings.TrimRight(getEnv("LOCAL_MODEL_URL", "http://localhost:11434"), "/"),
			Model: getEnv("LOCAL_MODEL_NAME", "llama3"),
		},
		LLM: LLMConfig{
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 2000),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", "120s"),
			StrictJSON:  getEnvAsBool("STRICT_JSON", false),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "reference_profiles"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		RateLimit: RateLimitConfig{
			UserRPM:      getEnvAsInt("RATE_LIMIT_USER_RPM", 10),
			GlobalRPM:    getEnvAsInt("RATE_LIMIT_GLOBAL_RPM", 100),
			SafetyMargin: getEnvAsInt("RATE_LIMIT_SAFETY_MARGIN", 5),
		},
		Storage: StorageConfig{
			ExportPath:  getEnv("EXPORT_PATH", "./exports"),
			MaxFileSize: getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 3),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
		Log: LogConfig{
			File: getEnv("LOG_FILE", "./logs/resumeiq.log"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}
}

// Validate rejects settings the server cannot start with. Missing cloud
// credentials are not an error here: cloud dispatch fails per request instead.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}

	switch c.Cloud.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported CLOUD_PROVIDER %q (want openai or gemini)", c.Cloud.Provider)
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %g", c.Tracing.SampleRatio)
	}
	if c.RateLimit.GlobalRPM <= c.RateLimit.SafetyMargin {
		return fmt.Errorf("RATE_LIMIT_GLOBAL_RPM must exceed the safety margin (%d)", c.RateLimit.SafetyMargin)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
