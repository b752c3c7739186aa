package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memoraio/memora/internal/memory"
	"github.com/memoraio/memora/internal/models"
)

var (
	chunkHeaders  []string
	chunkSummary  string
	chunkKeywords []string
	chunkType     string

	chunkSearchType      string
	chunkSearchThreshold float64
	chunkSearchLimit     int

	chunkListType   string
	chunkListLimit  int
	chunkListOffset int

	chunkCountType string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Manage the shared knowledge chunk store",
}

var chunkAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Ingest a knowledge chunk",
	Long: `Ingest a knowledge chunk into the shared store.

Examples:
  memora chunk add "restart the agent with systemctl restart memora" --type howto --keywords restart,ops
  memora chunk add "v2 removed the legacy API" --type reference --header "Release Notes"`,
	Args: cobra.ExactArgs(1),
	RunE: runChunkAdd,
}

var chunkSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search knowledge chunks by similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkSearch,
}

var chunkListCmd = &cobra.Command{
	Use:   "list",
	Short: "Page through stored chunks",
	RunE:  runChunkList,
}

var chunkRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunkRm,
}

var chunkCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored chunks",
	RunE:  runChunkCount,
}

func init() {
	chunkAddCmd.Flags().StringSliceVar(&chunkHeaders, "header", nil, "section headers (repeatable)")
	chunkAddCmd.Flags().StringVar(&chunkSummary, "summary", "", "short summary")
	chunkAddCmd.Flags().StringSliceVar(&chunkKeywords, "keywords", nil, "keywords")
	chunkAddCmd.Flags().StringVarP(&chunkType, "type", "t", "", "chunk type")

	chunkSearchCmd.Flags().StringVarP(&chunkSearchType, "type", "t", "", "filter by chunk type")
	chunkSearchCmd.Flags().Float64Var(&chunkSearchThreshold, "threshold", 0, "minimum similarity")
	chunkSearchCmd.Flags().IntVarP(&chunkSearchLimit, "limit", "n", 5, "max results")

	chunkListCmd.Flags().StringVarP(&chunkListType, "type", "t", "", "filter by chunk type")
	chunkListCmd.Flags().IntVarP(&chunkListLimit, "limit", "n", 20, "page size")
	chunkListCmd.Flags().IntVar(&chunkListOffset, "offset", 0, "page offset")

	chunkCountCmd.Flags().StringVarP(&chunkCountType, "type", "t", "", "filter by chunk type")

	chunkCmd.AddCommand(chunkAddCmd)
	chunkCmd.AddCommand(chunkSearchCmd)
	chunkCmd.AddCommand(chunkListCmd)
	chunkCmd.AddCommand(chunkRmCmd)
	chunkCmd.AddCommand(chunkCountCmd)
}

func runChunkAdd(cmd *cobra.Command, args []string) error {
	ks, err := knowledgeService()
	if err != nil {
		return err
	}

	chunk, err := ks.AddChunk(context.Background(), memory.ChunkInput{
		Headers:  chunkHeaders,
		Content:  args[0],
		Summary:  chunkSummary,
		Keywords: chunkKeywords,
		Type:     chunkType,
	})
	if err != nil {
		return fmt.Errorf("add chunk: %w", err)
	}

	fmt.Printf("Stored chunk %s\n", models.MustRecordIDString(chunk.ID))
	return nil
}

func runChunkSearch(cmd *cobra.Command, args []string) error {
	ks, err := knowledgeService()
	if err != nil {
		return err
	}

	threshold := chunkSearchThreshold
	if threshold == 0 {
		threshold = cfg.LTMThreshold
	}
	var typeFilter *string
	if chunkSearchType != "" {
		typeFilter = &chunkSearchType
	}

	results, err := ks.Search(context.Background(), args[0], typeFilter, threshold, chunkSearchLimit)
	if err != nil {
		return fmt.Errorf("search chunks: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f]", i+1, r.Similarity)
		if r.Type != "" {
			fmt.Printf(" (%s)", r.Type)
		}
		fmt.Printf(" %s\n", r.Content)
		if verbose && len(r.Headers) > 0 {
			fmt.Printf("   headers: %v\n", r.Headers)
		}
	}
	return nil
}

func runChunkList(cmd *cobra.Command, args []string) error {
	ks, err := knowledgeService()
	if err != nil {
		return err
	}

	var typeFilter *string
	if chunkListType != "" {
		typeFilter = &chunkListType
	}

	chunks, err := ks.List(context.Background(), typeFilter, chunkListLimit, chunkListOffset)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	if len(chunks) == 0 {
		fmt.Println("No chunks.")
		return nil
	}
	for _, chunk := range chunks {
		fmt.Printf("%s", models.MustRecordIDString(chunk.ID))
		if chunk.Type != "" {
			fmt.Printf(" (%s)", chunk.Type)
		}
		if chunk.Summary != "" {
			fmt.Printf(" %s", chunk.Summary)
		}
		fmt.Println()
	}
	return nil
}

func runChunkRm(cmd *cobra.Command, args []string) error {
	ks, err := knowledgeService()
	if err != nil {
		return err
	}
	if err := ks.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	fmt.Printf("Deleted chunk %s\n", args[0])
	return nil
}

func runChunkCount(cmd *cobra.Command, args []string) error {
	ks, err := knowledgeService()
	if err != nil {
		return err
	}

	var typeFilter *string
	if chunkCountType != "" {
		typeFilter = &chunkCountType
	}

	n, err := ks.Count(context.Background(), typeFilter)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	fmt.Println(n)
	return nil
}
