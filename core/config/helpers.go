package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":                  Global.App.Debug,
		"app_version":                Global.App.Version,
		"valkey_enabled":             Global.Valkey.Enabled,
		"ai_provider":                Global.AI.Provider,
		"ai_default_model":           Global.AI.DefaultModel,
		"ai_default_temperature":     Global.AI.DefaultTemperature,
		"ai_default_top_k":           Global.AI.DefaultTopK,
		"ai_default_embedding_model": Global.AI.DefaultEmbeddingModel,
		"ai_request_timeout":         Global.AI.RequestTimeout.String(),
		"ai_context_policy":          Global.AI.ContextPolicy,
		"history_max_turns":          Global.History.MaxTurns,
		"history_ttl":                Global.History.TTL.String(),
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
