package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikzart/excellor-ai/internal/logging"
	"github.com/nikzart/excellor-ai/internal/retrieval"
)

// NewSearchCmd constructs the `excellor search` command: one-shot retrieval
// against the local corpus, useful for inspecting what the chat layer would
// be grounded on.
func NewSearchCmd() *cobra.Command {
	var topK int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Run a similarity query against the local corpus",
		Long: `Embed a query and return the most relevant corpus passages.

When no passage exceeds the similarity threshold, fuzzy lexical matching
over chunk text decides instead, so a non-empty corpus always has a chance
to answer.

Examples:
  excellor search what is mitosis
  excellor search --top-k 5 --threshold 0.5 krebs cycle steps`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)
			query := strings.Join(args, " ")

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer store.Close()

			engine := retrieval.NewEngine(newEmbedder(log), store, engineOptions(log)...)

			results, err := engine.SearchWith(ctx, query, topK, threshold)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s", i+1, r.Score, r.Source)
				if r.Page > 0 {
					fmt.Printf(" (page %d)", r.Page)
				}
				fmt.Printf("\n   %s\n", r.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default from SEARCH_TOP_K or 3)")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum cosine similarity (default from SEARCH_THRESHOLD or 0.3)")

	return cmd
}
