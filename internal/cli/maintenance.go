package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/memory"
)

var (
	sweepInterval time.Duration

	consolidateUser    string
	consolidateSession string
	consolidateForce   bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired short-term turns",
	Long: `Remove expired short-term turns in batches.

Runs once by default; with --interval it keeps sweeping until
interrupted.

Examples:
  memora sweep
  memora sweep --interval 10m`,
	RunE: runSweep,
}

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply importance decay to stale long-term memories",
	Long: `Multiply the importance of long-unaccessed, rarely accessed
memories by the configured decay factor.`,
	RunE: runDecay,
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Promote a session's turns into long-term memories",
	Long: `Extract durable insights from a session's short-term turns, store
them as long-term memories, and remove the consolidated turns.

Without --force the session must have reached the consolidation
threshold.

Examples:
  memora consolidate --user alice --session chat-1
  memora consolidate --user alice --session chat-1 --force`,
	RunE: runConsolidate,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "sweep repeatedly at this interval")

	consolidateCmd.Flags().StringVarP(&consolidateUser, "user", "u", "", "user ID (required)")
	consolidateCmd.Flags().StringVarP(&consolidateSession, "session", "s", "", "session ID (required)")
	consolidateCmd.Flags().BoolVar(&consolidateForce, "force", false, "consolidate below the threshold")
	_ = consolidateCmd.MarkFlagRequired("user")
	_ = consolidateCmd.MarkFlagRequired("session")
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweeper := memory.NewSweeper(dbClient, cfg.SweepBatchSize, logger, collector)

	if sweepInterval > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Sweeping every %s, Ctrl-C to stop\n", sweepInterval)
		sweeper.Run(ctx, sweepInterval)
		return nil
	}

	removed, err := sweeper.Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Printf("Removed %d expired turns\n", removed)
	return nil
}

func runDecay(cmd *cobra.Command, args []string) error {
	ltm, err := ltmManager()
	if err != nil {
		return err
	}

	n, err := ltm.Decay(context.Background(), memory.DecayParams{
		MaxAge:         cfg.DecayMaxAge,
		MinAccessCount: cfg.DecayMinAccessCount,
		Factor:         cfg.DecayFactor,
	})
	if err != nil {
		return fmt.Errorf("decay: %w", err)
	}
	fmt.Printf("Decayed %d memories by factor %.2f\n", n, cfg.DecayFactor)
	return nil
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cons, err := consolidator()
	if err != nil {
		return err
	}

	var res *memory.ConsolidationResult
	if consolidateForce {
		res, err = cons.Consolidate(ctx, consolidateUser, consolidateSession)
	} else {
		res, err = cons.MaybeConsolidate(ctx, consolidateUser, consolidateSession)
	}
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}

	if res.Skipped {
		fmt.Printf("Session below threshold (%d turns needed); use --force to override\n", cfg.ConsolidateThreshold)
		return nil
	}
	fmt.Printf("Examined %d turns, kept %d insights, removed %d turns\n",
		res.TurnsExamined, res.InsightsKept, res.TurnsRemoved)
	return nil
}
