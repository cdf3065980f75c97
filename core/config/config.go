package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	// ContextPolicyHistoryReplacesRAG drops the RAG context message whenever a
	// user identifier is present; the observed behaviour of the service.
	ContextPolicyHistoryReplacesRAG = "history_replaces_rag"
	// ContextPolicyMerge keeps the RAG context message in front of history.
	ContextPolicyMerge = "merge"

	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Valkey     ValkeyConfig
	AI         AIConfig
	History    HistoryConfig
	Profile    ProfileConfig
	Snapshot   SnapshotConfig
	WorkerPool WorkerPoolConfig
	APIKeys    APIKeysConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	BasePath           string
	CorsAllowedOrigins []string
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// AIConfig collects every default the chat path used to resolve inline.
type AIConfig struct {
	Provider              string
	BaseURL               string
	DefaultModel          string
	DefaultTemperature    float64
	DefaultTopK           int
	MaxTopK               int
	DefaultEmbeddingModel string
	RequestTimeout        time.Duration
	ContextPolicy         string
}

type HistoryConfig struct {
	MaxTurns int
	TTL      time.Duration
}

type ProfileConfig struct {
	TTL time.Duration
}

type SnapshotConfig struct {
	TTL time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type APIKeysConfig struct {
	OpenAI string
	Gemini string
}

// Global provides access to the loaded configuration for the cobra commands.
var Global *Config

// LoadConfig loads configuration from a .env file (if present), environment
// variables and defaults, in that order of precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && fileExists(".env") {
		logrus.WithError(err).Warn("[CONFIG] Failed to read .env file")
	}

	debug := getEnvBool("APP_DEBUG", false)

	corsOrigins := []string{"http://localhost:3000"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", ProviderOpenAI))
	defaultModel, defaultEmbedding := providerModels(provider)

	cfg := &Config{
		App: AppConfig{
			Version:            "v1.0.0",
			Port:               getEnv("APP_PORT", "3000"),
			Debug:              debug,
			BasePath:           getEnv("APP_BASE_PATH", ""),
			CorsAllowedOrigins: corsOrigins,
		},
		Valkey: ValkeyConfig{
			Enabled:   getEnvBool("VALKEY_ENABLED", true),
			Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", ""),
		},
		AI: AIConfig{
			Provider:              provider,
			BaseURL:               getEnv("OPENAI_BASE_URL", ""),
			DefaultModel:          getEnv("AI_DEFAULT_MODEL", defaultModel),
			DefaultTemperature:    getEnvFloat("AI_DEFAULT_TEMPERATURE", 0.7),
			DefaultTopK:           getEnvInt("AI_DEFAULT_TOP_K", 3),
			MaxTopK:               20,
			DefaultEmbeddingModel: getEnv("AI_DEFAULT_EMBEDDING_MODEL", defaultEmbedding),
			RequestTimeout:        getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			ContextPolicy:         getEnv("AI_CONTEXT_POLICY", ContextPolicyHistoryReplacesRAG),
		},
		History: HistoryConfig{
			MaxTurns: getEnvInt("HISTORY_MAX_TURNS", 50),
			TTL:      getEnvDuration("HISTORY_TTL", 30*24*time.Hour),
		},
		Profile:  ProfileConfig{TTL: getEnvDuration("PROFILE_TTL", 24*time.Hour)},
		Snapshot: SnapshotConfig{TTL: getEnvDuration("SNAPSHOT_TTL", 7*24*time.Hour)},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("USER_QUEUE_SIZE", 8),
			QueueSize: getEnvInt("USER_QUEUE_DEPTH", 256),
		},
		APIKeys: APIKeysConfig{
			OpenAI: getEnv("OPENAI_API_KEY", ""),
			Gemini: getEnv("GEMINI_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Global = cfg
	return cfg, nil
}

func providerModels(provider string) (model, embedding string) {
	if provider == ProviderGemini {
		return DefaultGeminiModel, DefaultGeminiEmbeddingModel
	}
	return DefaultOpenAIModel, DefaultOpenAIEmbeddingModel
}

// UseProvider switches the provider. Model defaults that still point at the
// previous provider's defaults follow the switch; explicit models are kept.
func (a *AIConfig) UseProvider(provider string) {
	provider = strings.ToLower(provider)
	if provider == a.Provider {
		return
	}
	oldModel, oldEmbedding := providerModels(a.Provider)
	newModel, newEmbedding := providerModels(provider)
	if a.DefaultModel == oldModel {
		a.DefaultModel = newModel
	}
	if a.DefaultEmbeddingModel == oldEmbedding {
		a.DefaultEmbeddingModel = newEmbedding
	}
	a.Provider = provider
}

// Validate rejects configurations the chat path cannot run with.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}
	switch c.AI.ContextPolicy {
	case ContextPolicyHistoryReplacesRAG, ContextPolicyMerge:
	default:
		return fmt.Errorf("unsupported AI_CONTEXT_POLICY %q", c.AI.ContextPolicy)
	}
	if c.AI.DefaultTopK < 1 || c.AI.DefaultTopK > c.AI.MaxTopK {
		return fmt.Errorf("AI_DEFAULT_TOP_K must be between 1 and %d", c.AI.MaxTopK)
	}
	if c.History.MaxTurns <= 0 {
		return fmt.Errorf("HISTORY_MAX_TURNS must be positive")
	}
	return nil
}
