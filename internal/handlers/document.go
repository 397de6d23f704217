package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vectoria/internal/contextutil"
	"vectoria/internal/storage"
)

// DocumentHandler handles HTTP requests for document CRUD within a library.
type DocumentHandler struct {
	store *storage.Store
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(store *storage.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// CreateDocumentRequest represents the HTTP request payload for creating a document.
type CreateDocumentRequest struct {
	Name     string           `json:"name"`
	Metadata storage.Metadata `json:"metadata,omitempty"`
}

// Create handles POST /api/libraries/{libraryID}/documents.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.store.CreateDocument(ctx, chi.URLParam(r, "libraryID"), req.Name, req.Metadata)
	if err != nil {
		writeStoreError(w, r, err, "Failed to create document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// List handles GET /api/libraries/{libraryID}/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// Get handles GET /api/libraries/{libraryID}/documents/{documentID}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetDocument(r.Context(), chi.URLParam(r, "libraryID"), chi.URLParam(r, "documentID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /api/libraries/{libraryID}/documents/{documentID}.
// Deleting a document removes its chunks as well.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteDocument(r.Context(), chi.URLParam(r, "libraryID"), chi.URLParam(r, "documentID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
