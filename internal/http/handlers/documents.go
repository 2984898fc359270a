package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/clinic-pos/internal/documents"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

const maxDocumentBytes = 10 << 20 // 10 MiB

// DocumentsHandler serves clinic document upload and retrieval.
type DocumentsHandler struct {
	store  *documents.Store
	logger *logging.Logger
}

// NewDocumentsHandler creates the documents handler.
func NewDocumentsHandler(store *documents.Store, logger *logging.Logger) *DocumentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DocumentsHandler{store: store, logger: logger}
}

// Upload stores a document body under its kind and reference id.
// POST /documents/{kind}/{refID}
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		jsonError(w, "document storage disabled", http.StatusServiceUnavailable)
		return
	}

	orgID := orgFromRequest(r)
	kind := chi.URLParam(r, "kind")
	refID := chi.URLParam(r, "refID")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		jsonError(w, "empty body", http.StatusBadRequest)
		return
	}
	if len(body) > maxDocumentBytes {
		jsonError(w, "document too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, err := h.store.Put(r.Context(), orgID, kind, refID, contentType, body)
	if err != nil {
		if strings.Contains(err.Error(), "kind") {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("document upload failed", "error", err, "kind", kind, "ref_id", refID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// Download streams a stored document back.
// GET /documents?key=...
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		jsonError(w, "document storage disabled", http.StatusServiceUnavailable)
		return
	}

	orgID := orgFromRequest(r)
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		jsonError(w, "key parameter required", http.StatusBadRequest)
		return
	}
	// Keys embed the owning org; refuse cross-tenant reads.
	if !strings.HasPrefix(key, "documents/v1/"+orgID+"/") {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	data, contentType, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("document download failed", "error", err, "key", key)
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
