// Package commands defines all Cobra CLI commands for the excellor binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nikzart/excellor-ai/internal/audit"
	"github.com/nikzart/excellor-ai/internal/config"
	"github.com/nikzart/excellor-ai/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "excellor",
		Short: "Excellor — retrieval-grounded study assistant",
		Long: `Excellor ingests study documents (PDF, DOCX, plain text) into a local
corpus, embeds their passages, and answers similarity queries so a chat
assistant can ground its responses in the user's own material.

The corpus lives entirely on this device (~/.excellor/corpus.db); remote
services only ever see individual embedding and completion requests.

Configuration comes from environment variables or a YAML config file
(~/.excellor/config.yaml). Env vars always win.
See 'excellor --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is a convenience for development; absence is fine.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), path)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.excellor/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewSearchCmd(),
		NewDocumentsCmd(),
		NewVersionCmd(),
	)

	return root
}
