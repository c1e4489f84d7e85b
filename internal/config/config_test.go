package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SURREALDB_URL", "SURREALDB_NAMESPACE", "SURREALDB_DATABASE",
		"SEMSEARCH_EMBEDDING_PROVIDER", "SEMSEARCH_LOG_LEVEL",
		"SEMSEARCH_TARGET_RESULTS", "SEMSEARCH_LEDGER_WINDOW",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.SurrealDBURL != "ws://localhost:8000/rpc" {
		t.Errorf("SurrealDBURL = %q", cfg.SurrealDBURL)
	}
	if cfg.SurrealDBNamespace != "semsearch" {
		t.Errorf("SurrealDBNamespace = %q", cfg.SurrealDBNamespace)
	}
	if cfg.EmbeddingProvider != "ollama" {
		t.Errorf("EmbeddingProvider = %q", cfg.EmbeddingProvider)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.LedgerWindow != 50 {
		t.Errorf("LedgerWindow = %d", cfg.LedgerWindow)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SURREALDB_URL", "ws://db.internal:9000/rpc")
	t.Setenv("SEMSEARCH_LOG_LEVEL", "debug")
	t.Setenv("SEMSEARCH_TARGET_RESULTS", "25")
	t.Setenv("SEMSEARCH_MAX_PASSES", "not-a-number")

	cfg := Load()

	if cfg.SurrealDBURL != "ws://db.internal:9000/rpc" {
		t.Errorf("SurrealDBURL = %q", cfg.SurrealDBURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.TargetResults != 25 {
		t.Errorf("TargetResults = %d", cfg.TargetResults)
	}
	if cfg.MaxPasses != 0 {
		t.Errorf("MaxPasses = %d, want 0 for garbage input", cfg.MaxPasses)
	}
}

func TestEmbeddingConfigProviderSelection(t *testing.T) {
	cfg := Config{
		EmbeddingProvider:  "ollama",
		EmbeddingModel:     "nomic-embed-text",
		EmbeddingDimension: 768,
		OllamaHost:         "http://ollama.internal:11434",
		BedrockModel:       "amazon.titan-embed-text-v2:0",
		BedrockRegion:      "eu-west-1",
	}

	ec := cfg.EmbeddingConfig()
	if ec.Model != "nomic-embed-text" {
		t.Errorf("Model = %q", ec.Model)
	}
	if ec.Dimension != 768 {
		t.Errorf("Dimension = %d", ec.Dimension)
	}
	if ec.OllamaHost != "http://ollama.internal:11434" {
		t.Errorf("OllamaHost = %q", ec.OllamaHost)
	}

	cfg.EmbeddingProvider = "bedrock"
	ec = cfg.EmbeddingConfig()
	if ec.Model != "amazon.titan-embed-text-v2:0" {
		t.Errorf("bedrock Model = %q", ec.Model)
	}
	if ec.Region != "eu-west-1" {
		t.Errorf("Region = %q", ec.Region)
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := Config{
		SurrealDBURL:       "ws://db:8000/rpc",
		SurrealDBNamespace: "ns",
		SurrealDBDatabase:  "db",
		SurrealDBUser:      "u",
		SurrealDBPass:      "p",
		SurrealDBAuthLevel: "database",
	}

	sc := cfg.StoreConfig()
	if sc.URL != "ws://db:8000/rpc" || sc.Namespace != "ns" || sc.Database != "db" {
		t.Errorf("StoreConfig = %+v", sc)
	}
	if sc.Username != "u" || sc.Password != "p" || sc.AuthLevel != "database" {
		t.Errorf("StoreConfig credentials = %+v", sc)
	}
}

func TestSearchOptionsOverrides(t *testing.T) {
	cfg := Config{TargetResults: 15, MaxResults: 40}
	opts := cfg.SearchOptions()

	if opts.TargetResultCount != 15 {
		t.Errorf("TargetResultCount = %d", opts.TargetResultCount)
	}
	if opts.MaxResultCount != 40 {
		t.Errorf("MaxResultCount = %d", opts.MaxResultCount)
	}
	if opts.MaxPasses != 4 {
		t.Errorf("MaxPasses = %d, want stock default", opts.MaxPasses)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	overlay := `
min_learning_samples: 8
high_success_rate: 0.85
scoring:
  quality_weight: 0.6
  similarity_weight: 0.4
`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}

	if tuning.MinLearningSamples != 8 {
		t.Errorf("MinLearningSamples = %d", tuning.MinLearningSamples)
	}
	if tuning.HighSuccessRate != 0.85 {
		t.Errorf("HighSuccessRate = %v", tuning.HighSuccessRate)
	}
	if tuning.Scoring.QualityWeight != 0.6 {
		t.Errorf("Scoring.QualityWeight = %v", tuning.Scoring.QualityWeight)
	}
	// Untouched fields keep their defaults.
	if tuning.PrimaryMax != 0.8 {
		t.Errorf("PrimaryMax = %v, want default", tuning.PrimaryMax)
	}
	if tuning.Scoring.LengthNorm != 200 {
		t.Errorf("Scoring.LengthNorm = %v, want default", tuning.Scoring.LengthNorm)
	}
}

func TestLoadTuningEmptyPath(t *testing.T) {
	tuning, err := LoadTuning("")
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tuning.MinLearningSamples != 5 {
		t.Errorf("MinLearningSamples = %d, want default", tuning.MinLearningSamples)
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("search complete", "passes", 3)

	if !strings.Contains(stderr.String(), "search complete") {
		t.Errorf("stderr missing message: %q", stderr.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output not JSON: %v", err)
	}
	if entry["msg"] != "search complete" {
		t.Errorf("file msg = %v", entry["msg"])
	}
	if entry["passes"] != float64(3) {
		t.Errorf("file passes = %v", entry["passes"])
	}
}
