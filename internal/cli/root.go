// Package cli provides the command-line interface for memora.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/config"
	"github.com/memoraio/memora/internal/db"
	"github.com/memoraio/memora/internal/llm"
	"github.com/memoraio/memora/internal/memory"
	"github.com/memoraio/memora/internal/metrics"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared state built in PersistentPreRunE
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	collector *metrics.Collector
	dbClient  *db.Client

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "memora",
	Short: "Dual-tier semantic memory engine",
	Long: `Memora is a dual-tier memory engine for conversational agents.

Short-term memory holds recent conversation turns with TTL-based
retention; long-term memory holds durable facts, preferences, and
goals ranked by vector similarity and importance. The context command
assembles both tiers into prompt-ready context.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		collector = metrics.NewCollector()

		ctx := context.Background()
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
			Dimension: cfg.EmbedDimension,
		}, logger, collector)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil {
			printMetrics(collector.Snapshot())
		}
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logClose != nil {
			_ = logClose()
		}
	},
}

// ensureEmbedder initializes the embedding client on first use so
// commands that never embed stay network-free.
func ensureEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg, logger, collector)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// ensureModel initializes the generation client on first use.
func ensureModel() (*llm.Model, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg, collector)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return model, nil
}

func userManager() *memory.Users {
	return memory.NewUsers(dbClient, logger)
}

func stmManager() (*memory.STMManager, error) {
	emb, err := ensureEmbedder()
	if err != nil {
		return nil, err
	}
	return memory.NewSTMManager(dbClient, dbClient, emb, cfg.DefaultSTMTTL, logger), nil
}

func ltmManager() (*memory.LTMManager, error) {
	emb, err := ensureEmbedder()
	if err != nil {
		return nil, err
	}
	return memory.NewLTMManager(dbClient, emb, logger), nil
}

func knowledgeService() (*memory.KnowledgeService, error) {
	emb, err := ensureEmbedder()
	if err != nil {
		return nil, err
	}
	return memory.NewKnowledgeService(dbClient, emb, logger), nil
}

func contextAssembler() (*memory.Assembler, error) {
	stm, err := stmManager()
	if err != nil {
		return nil, err
	}
	ltm, err := ltmManager()
	if err != nil {
		return nil, err
	}
	return memory.NewAssembler(stm, ltm, logger), nil
}

func consolidator() (*memory.Consolidator, error) {
	ltm, err := ltmManager()
	if err != nil {
		return nil, err
	}
	m, err := ensureModel()
	if err != nil {
		return nil, err
	}
	return memory.NewConsolidator(dbClient, ltm, m, cfg.ConsolidateThreshold, cfg.ForceThreshold, logger, collector), nil
}

func printMetrics(snap metrics.Snapshot) {
	fmt.Fprintf(os.Stderr, "\n-- runtime stats (%.1fs) --\n", snap.UptimeSeconds)
	for _, name := range snap.Names() {
		op := snap.Ops[name]
		fmt.Fprintf(os.Stderr, "%-14s count=%d avg=%.1fms min=%dms max=%dms",
			name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
		if op.TotalInputTokens != nil {
			fmt.Fprintf(os.Stderr, " tokens_in=%d tokens_out=%d", *op.TotalInputTokens, *op.TotalOutputTokens)
		}
		fmt.Fprintln(os.Stderr)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(consolidateCmd)
}
