package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/models"
)

var (
	searchUser      string
	searchTier      string
	searchThreshold float64
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a memory tier by semantic similarity",
	Long: `Search one memory tier by semantic similarity to the query.

The ltm tier searches durable memories and bumps their access
bookkeeping; the stm tier ranks the user's active turns across all
sessions.

Examples:
  memora search "where does she live" --user alice
  memora search "travel plans" --user alice --tier stm --limit 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchUser, "user", "u", "", "user ID (required)")
	searchCmd.Flags().StringVarP(&searchTier, "tier", "t", "ltm", "memory tier: ltm or stm")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum similarity (default from config)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")
	_ = searchCmd.MarkFlagRequired("user")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	threshold := searchThreshold
	if threshold == 0 {
		threshold = cfg.LTMThreshold
	}

	switch searchTier {
	case "ltm":
		ltm, err := ltmManager()
		if err != nil {
			return err
		}
		results, err := ltm.Search(ctx, searchUser, query, threshold, searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		printMemoryResults(results)

	case "stm":
		stm, err := stmManager()
		if err != nil {
			return err
		}
		results, err := stm.Relevant(ctx, searchUser, query, threshold, searchLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		printTurnResults(results)

	default:
		return fmt.Errorf("unknown tier %q, want ltm or stm", searchTier)
	}
	return nil
}

func printMemoryResults(results []models.ScoredMemory) {
	if len(results) == 0 {
		fmt.Println("No matching memories.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] (%s, importance %.2f) %s\n", i+1, r.Similarity, r.Type, r.Importance, r.Content)
		if verbose {
			fmt.Printf("   id=%s accessed=%d verified=%t\n", models.MustRecordIDString(r.ID), r.AccessCount, r.Verified)
		}
	}
}

func printTurnResults(results []models.ScoredTurn) {
	if len(results) == 0 {
		fmt.Println("No matching turns.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] [%s #%d] %s: %s\n", i+1, r.Similarity, r.Turn.Session, r.Turn.TurnNumber, r.Turn.Role, r.Turn.Content)
	}
}
