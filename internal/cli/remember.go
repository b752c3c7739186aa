package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/models"
)

var (
	rememberUser       string
	rememberType       string
	rememberSummary    string
	rememberImportance float64

	listUser          string
	listType          string
	listMinImportance float64
	listLimit         int
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a long-term memory",
	Long: `Store a long-term memory for a user.

Examples:
  memora remember "prefers written summaries over calls" --user alice --type preference --importance 0.7
  memora remember "works as a nurse" --user alice --type fact`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's long-term memories by importance",
	RunE:  runList,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <memory-id>",
	Short: "Mark a long-term memory as user-confirmed",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberUser, "user", "u", "", "user ID (required)")
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "general", "memory type: preference, fact, context, goal, trigger, coping, general")
	rememberCmd.Flags().StringVar(&rememberSummary, "summary", "", "short summary")
	rememberCmd.Flags().Float64VarP(&rememberImportance, "importance", "i", 0.5, "importance in [0, 1]")
	_ = rememberCmd.MarkFlagRequired("user")

	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "user ID (required)")
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "filter by memory type")
	listCmd.Flags().Float64Var(&listMinImportance, "min-importance", 0, "importance floor")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max results")
	_ = listCmd.MarkFlagRequired("user")
}

func runRemember(cmd *cobra.Command, args []string) error {
	ltm, err := ltmManager()
	if err != nil {
		return err
	}

	mem, err := ltm.Remember(context.Background(), rememberUser, args[0],
		models.MemoryType(rememberType), rememberSummary, rememberImportance)
	if err != nil {
		return fmt.Errorf("remember: %w", err)
	}

	fmt.Printf("Stored %s memory %s (importance %.2f)\n",
		mem.Type, models.MustRecordIDString(mem.ID), mem.Importance)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ltm, err := ltmManager()
	if err != nil {
		return err
	}

	var memType *models.MemoryType
	if listType != "" {
		t := models.MemoryType(listType)
		memType = &t
	}

	mems, err := ltm.List(context.Background(), listUser, memType, listMinImportance, listLimit)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if len(mems) == 0 {
		fmt.Println("No memories.")
		return nil
	}
	for i, mem := range mems {
		marker := " "
		if mem.Verified {
			marker = "*"
		}
		fmt.Printf("%d.%s (%.2f, %s) %s\n", i+1, marker, mem.Importance, mem.Type, mem.Content)
		if verbose {
			fmt.Printf("   id=%s accessed=%d\n", models.MustRecordIDString(mem.ID), mem.AccessCount)
		}
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	ltm, err := ltmManager()
	if err != nil {
		return err
	}

	mem, err := ltm.Verify(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Printf("Verified: %s\n", mem.Content)
	return nil
}
