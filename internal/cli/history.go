package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyUser    string
	historySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a user's active conversation turns",
	Long: `Show a user's active short-term turns in chronological order.

Examples:
  memora history --user alice
  memora history --user alice --session chat-1`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyUser, "user", "u", "", "user ID (required)")
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "restrict to one session")
	_ = historyCmd.MarkFlagRequired("user")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	stm, err := stmManager()
	if err != nil {
		return err
	}

	var session *string
	if historySession != "" {
		session = &historySession
	}

	turns, err := stm.History(ctx, historyUser, session)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if len(turns) == 0 {
		fmt.Println("No active turns.")
		return nil
	}

	for _, turn := range turns {
		fmt.Printf("[%s #%d] %s: %s\n", turn.Session, turn.TurnNumber, turn.Role, turn.Content)
		if verbose && turn.Expires != nil {
			fmt.Printf("    expires %s\n", turn.Expires.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
