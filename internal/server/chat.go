package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nikzart/excellor-ai/internal/logging"
	"github.com/nikzart/excellor-ai/internal/retrieval"
)

// RelayConfig configures the completion relay behind POST /api/chat.
type RelayConfig struct {
	// Endpoint is the remote chat completions URL. Empty disables the relay.
	Endpoint string
	// Model is the model name sent with every completion request.
	Model string
	// APIKey is sent as a Bearer token when non-empty.
	APIKey string
}

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`
}

// relayRequest is the body forwarded to the remote completion endpoint.
type relayRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Relay forwards chat completions to a remote endpoint in stream mode and
// hands the SSE response back for byte-level pass-through.
type Relay struct {
	cfg    RelayConfig
	client *http.Client
}

// NewRelay constructs a Relay. The HTTP client carries no overall timeout
// since completion streams are open-ended; cancellation comes from the
// request context.
func NewRelay(cfg RelayConfig) *Relay {
	return &Relay{cfg: cfg, client: &http.Client{}}
}

// Enabled reports whether a remote endpoint is configured.
func (rl *Relay) Enabled() bool { return rl.cfg.Endpoint != "" }

// Stream sends messages to the remote endpoint with stream mode forced on
// and returns the open response. The caller owns resp.Body. A non-200
// upstream status is converted to an error carrying the upstream message.
func (rl *Relay) Stream(ctx context.Context, messages []Message) (*http.Response, error) {
	body, err := json.Marshal(relayRequest{
		Model:    rl.cfg.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rl.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if rl.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+rl.cfg.APIKey)
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling completion endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp, nil
}

// handleChat handles POST /api/chat. The latest user message is run through
// retrieval; when the corpus yields context, one system message carrying the
// retrieved passages (attributed by source name and page) is prepended to
// the conversation. The completion response is relayed to the client as an
// unmodified SSE byte stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if !s.relay.Enabled() {
		http.Error(w, "chat endpoint not configured", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages are required", http.StatusBadRequest)
		return
	}

	messages := s.groundMessages(r.Context(), req.Messages)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()

	resp, err := s.relay.Stream(r.Context(), messages)
	if err != nil {
		log.Error("chat relay failed", slog.Any("error", err))
		s.metrics.chatRequestsTotal.WithLabelValues("upstream_error").Inc()
		http.Error(w, "completion endpoint unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := flushCopy(w, flusher, resp.Body); err != nil {
		// The response is already streaming; all we can do is log.
		log.Warn("chat stream interrupted", slog.Any("error", err))
		s.metrics.chatRequestsTotal.WithLabelValues("error").Inc()
		return
	}
	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()
}

// groundMessages prepends a system message carrying retrieved corpus context
// for the latest user message. Retrieval failures and empty corpora leave
// the conversation unmodified.
func (s *Server) groundMessages(ctx context.Context, messages []Message) []Message {
	log := logging.FromContext(ctx)

	query := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			query = messages[i].Content
			break
		}
	}
	if query == "" {
		return messages
	}

	results, err := s.searcher.SearchWith(ctx, query, 0, 0)
	if err != nil {
		log.Warn("context retrieval failed, relaying without grounding", slog.Any("error", err))
		return messages
	}
	if len(results) == 0 {
		return messages
	}

	grounded := make([]Message, 0, len(messages)+1)
	grounded = append(grounded, Message{Role: "system", Content: retrieval.FormatContext(results)})
	return append(grounded, messages...)
}

// flushCopy streams src to w, flushing after every read so SSE events reach
// the client as they arrive.
func flushCopy(w io.Writer, flusher http.Flusher, src io.Reader) error {
	buf := make([]byte, 4<<10)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			flusher.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
