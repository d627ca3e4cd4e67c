package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nikzart/excellor-ai/internal/embedder"
	"github.com/nikzart/excellor-ai/internal/ingestion"
	"github.com/nikzart/excellor-ai/internal/logging"
	"github.com/nikzart/excellor-ai/internal/retrieval"
	"github.com/nikzart/excellor-ai/internal/server"
)

// NewServeCmd constructs the `excellor serve` command, which starts the
// HTTP server exposing the document, search, and chat APIs.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the excellor HTTP server",
		Long: `Start the excellor HTTP server on localhost.

The server exposes document upload and management, similarity search, and
an SSE chat relay that grounds completions in retrieved passages.

Examples:
  excellor serve
  excellor serve --port 9090
  EXCELLOR_API_KEY=secret excellor serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags beat env vars, env vars beat defaults.
			if !cmd.Flags().Changed("host") {
				if h := os.Getenv("EXCELLOR_HOST"); h != "" {
					host = h
				}
			}
			if !cmd.Flags().Changed("port") {
				if p, err := strconv.Atoi(os.Getenv("EXCELLOR_PORT")); err == nil && p > 0 {
					port = p
				}
			}

			store, err := openCorpus(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			reg := prometheus.NewRegistry()
			emb := newEmbedder(log, embedder.WithMetrics(reg))
			opts := append(engineOptions(log), retrieval.WithEngineMetrics(reg))
			engine := retrieval.NewEngine(emb, store, opts...)
			pipeline := ingestion.New(emb, store)

			srv, err := server.New(server.Deps{
				Ingestor: pipeline,
				Store:    store,
				Searcher: engine,
			}, &server.Config{
				Host:     host,
				Port:     port,
				Logger:   log,
				Pingers:  []server.Pinger{store},
				APIKey:   os.Getenv("EXCELLOR_API_KEY"),
				Registry: reg,
				Chat: server.RelayConfig{
					Endpoint: os.Getenv("CHAT_ENDPOINT"),
					Model:    os.Getenv("CHAT_MODEL"),
					APIKey:   os.Getenv("CHAT_API_KEY"),
				},
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
