// Package cli provides the command-line interface for semsearch.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danja/semem-sub000/internal/config"
	"github.com/danja/semem-sub000/internal/embedding"
	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and store handles
	cfg      config.Config
	client   *store.Client
	memory   *store.Store
	embedder embedding.Embedder

	closeLogger func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "semsearch",
	Short: "Adaptive semantic search over interaction memory",
	Long: `Semsearch stores prompt/response interactions with embeddings and
retrieves them through adaptive multi-pass similarity search.

Thresholds adjust to query complexity, zoom level and pan filters, then
relax across passes until enough good results accumulate. Outcomes feed
a per-session ledger that tunes future thresholds.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		// Interactive commands own the terminal, so logs go to the file
		// unless --verbose asks for stderr output too.
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level, !verbose)
		slog.SetDefault(logger)
		closeLogger = cleanup

		ctx := context.Background()

		var err error
		embedder, err = embedding.New(ctx, cfg.EmbeddingConfig())
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}

		client, err = store.NewClient(ctx, cfg.StoreConfig(), logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := client.InitSchema(ctx, embedder.Dimension()); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		memory = store.New(client, embedder, nil)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Close database connection
		if client != nil {
			if err := client.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLogger != nil {
			_ = closeLogger()
		}
	},
}

// newEngine wires the adaptive engine from the loaded config. Each CLI
// invocation gets a fresh ledger; learned state lives for the session
// only.
func newEngine() (*search.AdaptiveSearchEngine, error) {
	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	ledger := search.NewPerformanceLedger(cfg.LedgerWindow)
	calculator := search.NewThresholdCalculator(tuning, nil, ledger)
	scorer := search.NewResultScorer(tuning.Scoring)
	return search.NewAdaptiveSearchEngine(memory, calculator, scorer, ledger, nil), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(addCmd)
}
