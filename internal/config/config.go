// Package config loads anikama client settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LLM providers supported by the suggestion service.
const (
	ProviderGoogleAI  = "googleai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// Backend REST API
	APIURL        string
	ClientTimeout time.Duration

	// Auth provider (Supabase GoTrue)
	SupabaseURL     string
	SupabaseAnonKey string
	SessionFile     string

	// Query cache
	RelationshipStale time.Duration

	// Wallet top-up
	WalletChainID        int64
	WalletRPCURL         string
	WalletFallbackRPCURL string
	WalletKey            string
	TopUpDestination     string
	TopUpAmount          string

	// Generative content
	LLMProvider     string
	LLMModel        string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Chat archive (SurrealDB, optional)
	ArchiveURL       string
	ArchiveNamespace string
	ArchiveDatabase  string
	ArchiveUser      string
	ArchivePass      string
	ArchiveAuthLevel string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// SepoliaChainID is the default network required for top-ups.
const SepoliaChainID = 11155111

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		APIURL:        strings.TrimRight(getEnv("ANIKAMA_API_URL", "http://localhost:8080"), "/"),
		ClientTimeout: getDuration("ANIKAMA_CLIENT_TIMEOUT", 30*time.Second),

		SupabaseURL:     strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		SessionFile:     getEnv("ANIKAMA_SESSION_FILE", defaultSessionFile()),

		RelationshipStale: getDuration("ANIKAMA_RELATIONSHIP_STALE", time.Minute),

		WalletChainID:        getInt64("ANIKAMA_WALLET_CHAIN_ID", SepoliaChainID),
		WalletRPCURL:         getEnv("ANIKAMA_WALLET_RPC_URL", ""),
		WalletFallbackRPCURL: getEnv("ANIKAMA_WALLET_FALLBACK_RPC_URL", ""),
		WalletKey:            getEnv("ANIKAMA_WALLET_KEY", ""),
		TopUpDestination:     getEnv("ANIKAMA_TOPUP_DESTINATION", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"),
		TopUpAmount:          getEnv("ANIKAMA_TOPUP_AMOUNT", "0.01"),

		LLMProvider:     getEnv("ANIKAMA_LLM_PROVIDER", ProviderGoogleAI),
		LLMModel:        getEnv("ANIKAMA_LLM_MODEL", "gemini-pro"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		ArchiveURL:       getEnv("ANIKAMA_ARCHIVE_URL", ""),
		ArchiveNamespace: getEnv("SURREALDB_NAMESPACE", "anikama"),
		ArchiveDatabase:  getEnv("SURREALDB_DATABASE", "chat"),
		ArchiveUser:      getEnv("SURREALDB_USER", "root"),
		ArchivePass:      getEnv("SURREALDB_PASS", "root"),
		ArchiveAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LogFile:  getEnv("ANIKAMA_LOG_FILE", "/tmp/anikama.log"),
		LogLevel: parseLogLevel(getEnv("ANIKAMA_LOG_LEVEL", "INFO")),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".anikama-session.yaml"
	}
	return filepath.Join(dir, "anikama", "session.yaml")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
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
