package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vectoria/internal/contextutil"
	"vectoria/internal/index"
	"vectoria/internal/storage"
)

// LibraryHandler handles HTTP requests for library CRUD and index management.
type LibraryHandler struct {
	store *storage.Store
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(store *storage.Store) *LibraryHandler {
	return &LibraryHandler{store: store}
}

// CreateLibraryRequest represents the HTTP request payload for creating a library.
type CreateLibraryRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Metadata    storage.Metadata `json:"metadata,omitempty"`
}

// UpdateLibraryRequest represents the HTTP request payload for updating a library.
// Absent fields are left unchanged.
type UpdateLibraryRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Metadata    storage.Metadata `json:"metadata,omitempty"`
}

// BuildIndexRequest selects the index algorithm to build. An empty kind
// rebuilds with the library's current one.
type BuildIndexRequest struct {
	Kind index.Kind `json:"kind,omitempty"`
}

// Create handles POST /api/libraries.
func (h *LibraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lib, err := h.store.CreateLibrary(ctx, req.Name, req.Description, req.Metadata)
	if err != nil {
		writeStoreError(w, r, err, "Failed to create library")
		return
	}
	writeJSON(w, http.StatusCreated, lib)
}

// List handles GET /api/libraries.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListLibraries(r.Context()))
}

// Get handles GET /api/libraries/{libraryID}.
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	lib, err := h.store.GetLibrary(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to get library")
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

// Update handles PUT /api/libraries/{libraryID}.
func (h *LibraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpdateLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lib, err := h.store.UpdateLibrary(ctx, chi.URLParam(r, "libraryID"), storage.LibraryUpdate{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeStoreError(w, r, err, "Failed to update library")
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

// Delete handles DELETE /api/libraries/{libraryID}.
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteLibrary(r.Context(), chi.URLParam(r, "libraryID")); err != nil {
		writeStoreError(w, r, err, "Failed to delete library")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BuildIndex handles POST /api/libraries/{libraryID}/index?kind={linear|kdtree|lsh}.
// The kind may come from the query string or a JSON body; when absent the
// library's current kind is rebuilt.
func (h *LibraryHandler) BuildIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	libID := chi.URLParam(r, "libraryID")

	kind := index.Kind(r.URL.Query().Get("kind"))
	if kind == "" && r.ContentLength != 0 {
		var req BuildIndexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		kind = req.Kind
	}
	if kind == "" {
		lib, err := h.store.GetLibrary(ctx, libID)
		if err != nil {
			writeStoreError(w, r, err, "Failed to get library")
			return
		}
		kind = lib.IndexKind
	}

	if err := h.store.BuildIndex(ctx, libID, kind); err != nil {
		writeStoreError(w, r, err, "Failed to build index")
		return
	}
	stats, err := h.store.IndexStats(ctx, libID)
	if err != nil {
		writeStoreError(w, r, err, "Failed to read index stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Stats handles GET /api/libraries/{libraryID}/stats.
func (h *LibraryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.IndexStats(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to read index stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
