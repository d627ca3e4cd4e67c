package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/extract"
	"github.com/nikzart/excellor-ai/internal/ingestion"
	"github.com/nikzart/excellor-ai/internal/logging"
)

// maxUploadBody caps the whole multipart request body. Individual files are
// additionally held to the pipeline's per-file limit.
const maxUploadBody = 64 << 20

// handleDocumentsUpload handles POST /api/documents: a multipart upload of
// one or more files under the "files" field. Files are ingested
// independently; one rejected file never blocks the rest. The response
// carries a per-file result with the status its outcome maps to, and the
// overall status is 201 only when every file succeeded.
func (s *Server) handleDocumentsUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}

	files := make([]ingestion.FileInput, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			http.Error(w, "unreadable multipart part", http.StatusBadRequest)
			return
		}
		// Read one byte past the cap so the pipeline sees the overflow
		// and reports the oversize error itself.
		data, err := io.ReadAll(io.LimitReader(f, ingestion.MaxFileSize+1))
		f.Close()
		if err != nil {
			http.Error(w, "unreadable multipart part", http.StatusBadRequest)
			return
		}
		files = append(files, ingestion.FileInput{
			Name:        hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	resp := uploadResponse{Files: make([]uploadFileResult, 0, len(files))}
	allOK := true
	for _, res := range s.ingestor.ProcessAll(r.Context(), files) {
		result := uploadFileResult{Name: res.Name, Status: ingestStatus(res.Err)}
		if res.Err != nil {
			allOK = false
			result.Error = res.Err.Error()
			s.metrics.documentsIngestedTotal.WithLabelValues("error").Inc()
		} else {
			result.Document = res.Document
			s.metrics.documentsIngestedTotal.WithLabelValues("ok").Inc()
		}
		resp.Files = append(resp.Files, result)
	}

	status := http.StatusCreated
	if !allOK {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp, log)
}

// ingestStatus maps a pipeline error to the HTTP status its file result carries.
func ingestStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusCreated
	case errors.Is(err, ingestion.ErrOversizeFile):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrNoTextContent), errors.Is(err, ingestion.ErrNoChunks):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleDocumentsList handles GET /api/documents, most recently stored first.
func (s *Server) handleDocumentsList(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		log.Error("listing documents", slog.Any("error", err))
		http.Error(w, "listing documents failed", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []corpus.Document{}
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: docs}, log)
}

// handleDocumentDelete handles DELETE /api/documents/{id}.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id := r.PathValue("id")
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		log.Error("deleting document", slog.String("document_id", id), slog.Any("error", err))
		http.Error(w, "deleting document failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDocumentsClear handles DELETE /api/documents: empty the whole corpus.
func (s *Server) handleDocumentsClear(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := s.store.Clear(r.Context()); err != nil {
		log.Error("clearing corpus", slog.Any("error", err))
		http.Error(w, "clearing corpus failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
