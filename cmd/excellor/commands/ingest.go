package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikzart/excellor-ai/internal/ingestion"
	"github.com/nikzart/excellor-ai/internal/logging"
)

// NewIngestCmd constructs the `excellor ingest` command, which runs the
// ingestion pipeline over files on disk without starting the server.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file> [file...]",
		Short: "Ingest study documents into the local corpus",
		Long: `Extract, chunk, and embed one or more documents into the local corpus.

Supported formats: .pdf, .docx, .txt, up to 10MB per file. Files are
processed independently; a rejected file never blocks the rest.

Without EMBEDDING_API_KEY the pipeline uses deterministic local embedding
vectors, which still support retrieval within a locally embedded corpus.

Examples:
  excellor ingest notes.pdf
  excellor ingest chapter1.docx chapter2.docx glossary.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline := ingestion.New(newEmbedder(log), store)

			files := make([]ingestion.FileInput, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: reading %s: %w", path, err)
				}
				files = append(files, ingestion.FileInput{
					Name: filepath.Base(path),
					Data: data,
				})
			}

			failed := 0
			for _, res := range pipeline.ProcessAll(ctx, files) {
				if res.Err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Name, res.Err)
					continue
				}
				fmt.Printf("✓ %s: %d chunks (document %s)\n",
					res.Name, len(res.Document.Chunks), res.Document.ID)
			}

			if failed == len(files) {
				return fmt.Errorf("ingest: all %d files failed", failed)
			}
			if failed > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, len(files))
			}
			return nil
		},
	}

	return cmd
}
