package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/models"
)

var (
	appendUser    string
	appendSession string
	appendRole    string
)

var appendCmd = &cobra.Command{
	Use:   "append <content>",
	Short: "Append a conversation turn to short-term memory",
	Long: `Append a conversation turn to short-term memory.

The turn is embedded, assigned the next turn number of its session,
and expires after the configured TTL. When the session reaches the
consolidation threshold, a hint is printed.

Examples:
  memora append "I moved to Graz last month" --user alice --session chat-1
  memora append "Good to know!" --user alice --session chat-1 --role assistant`,
	Args: cobra.ExactArgs(1),
	RunE: runAppend,
}

func init() {
	appendCmd.Flags().StringVarP(&appendUser, "user", "u", "", "user ID (required)")
	appendCmd.Flags().StringVarP(&appendSession, "session", "s", "", "session ID (required)")
	appendCmd.Flags().StringVarP(&appendRole, "role", "r", "user", "turn role: user, assistant, or system")
	_ = appendCmd.MarkFlagRequired("user")
	_ = appendCmd.MarkFlagRequired("session")
}

func runAppend(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	stm, err := stmManager()
	if err != nil {
		return err
	}

	turn, err := stm.AppendTurn(ctx, appendUser, appendSession, args[0], models.Role(appendRole))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	fmt.Printf("Turn %d appended to session %s\n", turn.TurnNumber, appendSession)

	count, err := stm.Count(ctx, appendUser, appendSession)
	if err != nil {
		// Informational only; the turn is already stored.
		if !errors.Is(err, context.Canceled) {
			logger.Warn("count after append failed", "error", err)
		}
		return nil
	}
	if count >= cfg.ConsolidateThreshold {
		fmt.Printf("Session has %d turns; consider 'memora consolidate --user %s --session %s'\n",
			count, appendUser, appendSession)
	}
	return nil
}
