package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/danja/semem-sub000/internal/embedding"
	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/store"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embedding provider: "ollama" or "bedrock"
	EmbeddingProvider string
	OllamaHost        string
	EmbeddingModel    string
	// EmbeddingDimension overrides the provider default; 0 keeps it.
	EmbeddingDimension int
	BedrockModel       string
	BedrockRegion      string

	// HTTP server
	ListenAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Search engine
	TuningFile    string
	LedgerWindow  int
	TargetResults int
	MaxResults    int
	MaxPasses     int
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "semsearch"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "memory"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbeddingProvider:  getEnv("SEMSEARCH_EMBEDDING_PROVIDER", "ollama"),
		OllamaHost:         getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbeddingModel:     getEnv("SEMSEARCH_EMBEDDING_MODEL", "all-minilm:l6-v2"),
		EmbeddingDimension: getEnvInt("SEMSEARCH_EMBEDDING_DIMENSION", 0),
		BedrockModel:       getEnv("SEMSEARCH_BEDROCK_MODEL", "amazon.titan-embed-text-v2:0"),
		BedrockRegion:      getEnv("AWS_REGION", "us-east-1"),

		ListenAddr: getEnv("SEMSEARCH_LISTEN_ADDR", ":8700"),

		LogFile:  getEnv("SEMSEARCH_LOG_FILE", "/tmp/semsearch.log"),
		LogLevel: parseLogLevel(getEnv("SEMSEARCH_LOG_LEVEL", "INFO")),

		TuningFile:    getEnv("SEMSEARCH_TUNING_FILE", ""),
		LedgerWindow:  getEnvInt("SEMSEARCH_LEDGER_WINDOW", search.DefaultLedgerWindow),
		TargetResults: getEnvInt("SEMSEARCH_TARGET_RESULTS", 0),
		MaxResults:    getEnvInt("SEMSEARCH_MAX_RESULTS", 0),
		MaxPasses:     getEnvInt("SEMSEARCH_MAX_PASSES", 0),
	}
}

// EmbeddingConfig builds the embedder configuration for the selected
// provider.
func (c Config) EmbeddingConfig() embedding.Config {
	ec := embedding.Config{
		Provider:   embedding.ProviderType(c.EmbeddingProvider),
		Model:      c.EmbeddingModel,
		Dimension:  c.EmbeddingDimension,
		OllamaHost: c.OllamaHost,
		Region:     c.BedrockRegion,
	}
	if ec.Provider == embedding.ProviderBedrock {
		ec.Model = c.BedrockModel
	}
	return ec
}

// StoreConfig builds the database connection configuration.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		URL:       c.SurrealDBURL,
		Namespace: c.SurrealDBNamespace,
		Database:  c.SurrealDBDatabase,
		Username:  c.SurrealDBUser,
		Password:  c.SurrealDBPass,
		AuthLevel: c.SurrealDBAuthLevel,
	}
}

// SearchOptions builds the engine defaults with any configured overrides
// applied. Zero values keep the stock defaults.
func (c Config) SearchOptions() search.Options {
	opts := search.DefaultOptions()
	if c.TargetResults > 0 {
		opts.TargetResultCount = c.TargetResults
	}
	if c.MaxResults > 0 {
		opts.MaxResultCount = c.MaxResults
	}
	if c.MaxPasses > 0 {
		opts.MaxPasses = c.MaxPasses
	}
	return opts
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", val)
		return defaultVal
	}
	return n
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
