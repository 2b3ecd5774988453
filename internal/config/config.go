package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Keys     APIKeys
	Ai       AIConfig
	Analysis AnalysisConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ActivityLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	MetricsEnabled     bool
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider        string // "ollama", "huggingface", "gemini"
	LLMModel           string
	OllamaBaseURL      string
	HuggingFaceBaseURL string
}

type AnalysisConfig struct {
	QueryStrategy        string // "sql" or "aggregate"
	ChartPieThreshold    int
	ReportMaxRows        int
	ClarifyHistoryWindow int
	UploadMaxBytes       int
	EngineQueueDepth     int
	SessionTTL           time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ActivityLogPath:    getEnv("ACTIVITY_LOG_FILE_PATH", "logs/activity.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "qwen2.5"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", ""),
		},
		Analysis: AnalysisConfig{
			QueryStrategy:        strings.ToLower(getEnv("QUERY_STRATEGY", "sql")),
			ChartPieThreshold:    getEnvAsInt("CHART_PIE_THRESHOLD", 5),
			ReportMaxRows:        getEnvAsInt("REPORT_MAX_ROWS", 200),
			ClarifyHistoryWindow: getEnvAsInt("CLARIFY_HISTORY_WINDOW", 10),
			UploadMaxBytes:       getEnvAsInt("UPLOAD_MAX_BYTES", 10*1024*1024),
			EngineQueueDepth:     getEnvAsInt("ENGINE_QUEUE_DEPTH", 8),
			SessionTTL:           getEnvAsDuration("SESSION_TTL", time.Hour),
		},
	}
}

// LLMBaseURL picks the base URL that belongs to the configured provider.
func (c *Config) LLMBaseURL() string {
	switch c.Ai.LLMProvider {
	case "huggingface":
		return c.Ai.HuggingFaceBaseURL
	case "ollama":
		return c.Ai.OllamaBaseURL
	}
	return ""
}

// LLMAPIKey picks the key that belongs to the configured provider.
func (c *Config) LLMAPIKey() string {
	switch c.Ai.LLMProvider {
	case "huggingface":
		return c.Keys.HuggingFace
	case "gemini":
		return c.Keys.GoogleGemini
	}
	return ""
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

// getEnvAsDuration accepts Go durations ("45m") or plain seconds ("2700").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
