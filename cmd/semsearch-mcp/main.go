// Package main provides the entry point for the semsearch MCP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danja/semem-sub000/internal/config"
	"github.com/danja/semem-sub000/internal/embedding"
	"github.com/danja/semem-sub000/internal/metrics"
	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/store"
	"github.com/danja/semem-sub000/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON). Stdout belongs
	// to the stdio transport.
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel, false)
	defer func() { _ = cleanup() }()
	slog.SetDefault(logger)

	logger.Info("semsearch-mcp starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"embedding_provider", cfg.EmbeddingProvider,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create embedder
	embedder, err := embedding.New(ctx, cfg.EmbeddingConfig())
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model(), "dimension", embedder.Dimension())

	// Connect to database
	client, err := store.NewClient(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = client.Close(ctx)
	}()

	// Initialize database schema
	if err := client.InitSchema(ctx, embedder.Dimension()); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Load threshold and scoring tuning
	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		logger.Error("failed to load tuning", "error", err)
		os.Exit(1)
	}

	// Wire the adaptive engine
	collector := metrics.NewCollector()
	ledger := search.NewPerformanceLedger(cfg.LedgerWindow)
	memory := store.New(client, embedder, collector)
	engine := search.NewAdaptiveSearchEngine(memory,
		search.NewThresholdCalculator(tuning, nil, ledger),
		search.NewResultScorer(tuning.Scoring),
		ledger, collector)

	// Create MCP server
	srv := mcp.NewServer(&mcp.Implementation{Name: "semsearch", Version: version}, nil)
	srv.AddReceivingMiddleware(tools.LoggingMiddleware(logger))

	// Register tools
	deps := &tools.Dependencies{
		Engine:   engine,
		Memory:   memory,
		Defaults: cfg.SearchOptions(),
		Logger:   logger,
	}
	tools.RegisterAll(srv, deps)
	logger.Info("tools registered", "count", 4)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
