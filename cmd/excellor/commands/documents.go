package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/logging"
)

// NewDocumentsCmd constructs the `excellor documents` command group for
// corpus administration.
func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List and manage corpus documents",
	}

	cmd.AddCommand(
		newDocumentsListCmd(),
		newDocumentsDeleteCmd(),
		newDocumentsClearCmd(),
	)

	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List corpus documents, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			defer store.Close()

			docs, err := store.ListDocuments(cmd.Context())
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			if len(docs) == 0 {
				fmt.Println("corpus is empty")
				return nil
			}

			for _, d := range docs {
				fmt.Printf("%s  %-6s %4d chunks  %s  %s\n",
					d.CreatedAt.Format("2006-01-02 15:04"), d.Format, len(d.Chunks), d.ID, d.Name)
			}
			return nil
		},
	}
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one document and its embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			defer store.Close()

			if err := store.DeleteDocument(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, corpus.ErrNotFound) {
					return fmt.Errorf("documents: no document with id %s", args[0])
				}
				return fmt.Errorf("documents: %w", err)
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newDocumentsClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document in the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("documents: clearing removes the whole corpus; re-run with --yes to confirm")
			}
			log := logging.New()

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("documents: %w", err)
			}
			fmt.Println("corpus cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing the corpus")

	return cmd
}
