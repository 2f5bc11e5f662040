// Package config loads configuration from the environment and an optional
// YAML file, and sets up logging.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an embedding / LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// MongoDB session corpus
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`

	// Local JSON corpus (used instead of MongoDB when set)
	SessionsFile string `yaml:"sessions_file"`

	// Embeddings
	EmbedProvider  Provider      `yaml:"embed_provider"`
	EmbedModel     string        `yaml:"embed_model"`
	EmbedDimension int           `yaml:"embed_dimension"`
	EmbedBatchSize int           `yaml:"embed_batch_size"`
	EmbedTimeout   time.Duration `yaml:"embed_timeout"`
	OllamaHost     string        `yaml:"ollama_host"`
	OpenAIAPIKey   string        `yaml:"openai_api_key"`

	// Advice generation (collaborator, chat command only)
	LLMProvider     Provider `yaml:"llm_provider"`
	LLMModel        string   `yaml:"llm_model"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`

	// Vector index
	CacheDir        string        `yaml:"cache_dir"`
	RebuildInterval time.Duration `yaml:"rebuild_interval"`

	// Conversation context
	ContextMaxSessions int           `yaml:"context_max_sessions"`
	ContextTTL         time.Duration `yaml:"context_ttl"`

	// Search
	MaxResults int `yaml:"max_results"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables. Defaults match the
// original ASHA deployment (local MongoDB, local Ollama, all-minilm).
func Load() Config {
	return Config{
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "asha_db"),
		MongoCollection: getEnv("MONGO_SESSIONS_COLLECTION", "sessions"),

		SessionsFile: getEnv("SESSIONSCOUT_SESSIONS_FILE", ""),

		EmbedProvider:  Provider(getEnv("SESSIONSCOUT_EMBED_PROVIDER", string(ProviderOllama))),
		EmbedModel:     getEnv("SESSIONSCOUT_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("SESSIONSCOUT_EMBED_DIMENSION", 384),
		EmbedBatchSize: getEnvInt("SESSIONSCOUT_EMBED_BATCH_SIZE", 32),
		EmbedTimeout:   getEnvDuration("SESSIONSCOUT_EMBED_TIMEOUT", 30*time.Second),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),

		LLMProvider:     Provider(getEnv("SESSIONSCOUT_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("SESSIONSCOUT_LLM_MODEL", "mistral:latest"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		CacheDir:        getEnv("SESSIONSCOUT_CACHE_DIR", defaultCacheDir()),
		RebuildInterval: getEnvDuration("SESSIONSCOUT_REBUILD_INTERVAL", 10*time.Minute),

		ContextMaxSessions: getEnvInt("SESSIONSCOUT_CONTEXT_MAX", 20),
		ContextTTL:         getEnvDuration("SESSIONSCOUT_CONTEXT_TTL", time.Hour),

		MaxResults: getEnvInt("SESSIONSCOUT_MAX_RESULTS", 5),

		LogFile:  getEnv("SESSIONSCOUT_LOG_FILE", "/tmp/sessionscout.log"),
		LogLevel: parseLogLevel(getEnv("SESSIONSCOUT_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML file onto cfg and returns the result.
// Fields absent from the file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sessionscout")
	}
	return filepath.Join(os.TempDir(), "sessionscout")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
