package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/models"
)

var userName string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userInitCmd = &cobra.Command{
	Use:   "init [id]",
	Short: "Get or create a user",
	Long: `Get or create a user. Without an ID a fresh UUID is allocated.

Examples:
  memora user init alice --name "Alice"
  memora user init`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUserInit,
}

var userShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

var userRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a user and all of their memories",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserRm,
}

func init() {
	userInitCmd.Flags().StringVar(&userName, "name", "", "display name for new users")

	userCmd.AddCommand(userInitCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userRmCmd)
}

func runUserInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var id *string
	if len(args) == 1 {
		id = &args[0]
	}
	var name *string
	if userName != "" {
		name = &userName
	}

	user, created, err := userManager().GetOrCreate(ctx, id, name)
	if err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}

	if created {
		fmt.Printf("Created user %s\n", user.ID.ID)
	} else {
		fmt.Printf("Found user %s\n", user.ID.ID)
	}
	printUser(user)
	return nil
}

func runUserShow(cmd *cobra.Command, args []string) error {
	user, err := userManager().Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func runUserRm(cmd *cobra.Command, args []string) error {
	removed, err := userManager().Delete(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted user %s and %d memories\n", args[0], removed)
	return nil
}

func printUser(user *models.User) {
	if user.DisplayName != nil {
		fmt.Printf("  Name: %s\n", *user.DisplayName)
	}
	fmt.Printf("  Created: %s\n", user.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last seen: %s\n", user.LastInteraction.Format("2006-01-02 15:04:05"))
}
