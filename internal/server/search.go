package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nikzart/excellor-ai/internal/logging"
	"github.com/nikzart/excellor-ai/internal/retrieval"
)

// handleSearch handles POST /api/search: run a retrieval query and return
// the ranked chunks with their source attribution and scores.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	results, err := s.searcher.SearchWith(r.Context(), req.Query, req.TopK, req.Threshold)
	if err != nil {
		log.Error("search failed", slog.Any("error", err))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}
	s.metrics.searchesTotal.Inc()

	writeJSON(w, http.StatusOK, searchResponse{Results: results}, log)
}
