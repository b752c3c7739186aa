package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/memory"
)

var (
	contextUser      string
	contextSession   string
	contextTurns     int
	contextMemories  int
	contextThreshold float64
)

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Assemble prompt context from both memory tiers",
	Long: `Assemble prompt-ready context: the session's recent turns plus the
most relevant long-term memories for the query. If long-term recall
fails, the short-term half is returned and marked partial.

Examples:
  memora context "plan the weekend trip" --user alice --session chat-1
  memora context "diet restrictions" --user alice --session chat-1 --memories 5`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVarP(&contextUser, "user", "u", "", "user ID (required)")
	contextCmd.Flags().StringVarP(&contextSession, "session", "s", "", "session ID (required)")
	contextCmd.Flags().IntVar(&contextTurns, "turns", 0, "max recent turns")
	contextCmd.Flags().IntVar(&contextMemories, "memories", 0, "max relevant memories")
	contextCmd.Flags().Float64Var(&contextThreshold, "threshold", 0, "minimum similarity for memories")
	_ = contextCmd.MarkFlagRequired("user")
	_ = contextCmd.MarkFlagRequired("session")
}

func runContext(cmd *cobra.Command, args []string) error {
	asm, err := contextAssembler()
	if err != nil {
		return err
	}

	threshold := contextThreshold
	if threshold == 0 {
		threshold = cfg.LTMThreshold
	}

	bundle, err := asm.Assemble(context.Background(), contextUser, contextSession, args[0], memory.AssembleOptions{
		MaxTurns:    contextTurns,
		MaxMemories: contextMemories,
		Threshold:   threshold,
	})
	if err != nil {
		return fmt.Errorf("assemble context: %w", err)
	}

	if bundle.Partial {
		fmt.Println("(partial: long-term recall unavailable)")
	}

	fmt.Println("Recent conversation:")
	if len(bundle.RecentTurns) == 0 {
		fmt.Println("  (none)")
	}
	for _, turn := range bundle.RecentTurns {
		fmt.Printf("  %s: %s\n", turn.Role, turn.Content)
	}

	fmt.Println("Relevant memories:")
	if len(bundle.Relevant) == 0 {
		fmt.Println("  (none)")
	}
	for _, mem := range bundle.Relevant {
		fmt.Printf("  [%.3f] (%s) %s\n", mem.Similarity, mem.Type, mem.Content)
	}
	return nil
}
