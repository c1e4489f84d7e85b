// Package main provides the HTTP search server for semsearch.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danja/semem-sub000/internal/config"
	"github.com/danja/semem-sub000/internal/embedding"
	"github.com/danja/semem-sub000/internal/metrics"
	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/server"
	"github.com/danja/semem-sub000/internal/store"
)

func main() {
	// Parse flags
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	// Initialize logging
	logger, closeLogger := config.SetupLogger(cfg.LogFile, cfg.LogLevel, false)
	slog.SetDefault(logger)
	defer func() {
		_ = closeLogger()
	}()

	slog.Info("starting semsearch-server", "addr", cfg.ListenAddr)

	// Wire dependencies
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	embedder, err := embedding.New(ctx, cfg.EmbeddingConfig())
	if err != nil {
		cancel()
		slog.Error("failed to init embedder", "error", err)
		os.Exit(1)
	}

	client, err := store.NewClient(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := client.InitSchema(ctx, embedder.Dimension()); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Wipe database if requested (via flag or env var)
	if *wipeDB || os.Getenv("SEMSEARCH_WIPE_DB") == "true" {
		if err := client.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		slog.Warn("wiped all interaction data")
	}
	cancel()

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		slog.Error("failed to load tuning", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	ledger := search.NewPerformanceLedger(cfg.LedgerWindow)
	calculator := search.NewThresholdCalculator(tuning, nil, ledger)
	scorer := search.NewResultScorer(tuning.Scoring)
	memory := store.New(client, embedder, collector)
	engine := search.NewAdaptiveSearchEngine(memory, calculator, scorer, ledger, collector)

	srv := server.New(engine, memory, cfg.SearchOptions(), logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // embedding calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("search API available", "addr", cfg.ListenAddr,
			"embedding_provider", cfg.EmbeddingProvider, "embedding_model", embedder.Model())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
