package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vectoria/internal/contextutil"
	"vectoria/internal/storage"
)

// ChunkHandler handles HTTP requests for chunk CRUD within a document.
type ChunkHandler struct {
	store *storage.Store
}

// NewChunkHandler creates a new ChunkHandler.
func NewChunkHandler(store *storage.Store) *ChunkHandler {
	return &ChunkHandler{store: store}
}

// ChunkRequest represents one chunk in an insert batch.
type ChunkRequest struct {
	Text      string           `json:"text"`
	Embedding []float64        `json:"embedding"`
	Metadata  storage.Metadata `json:"metadata,omitempty"`
}

// AddChunksRequest represents the HTTP request payload for inserting chunks.
// The body may also be a bare JSON array of chunks. The whole batch is
// inserted atomically.
type AddChunksRequest struct {
	Chunks []ChunkRequest `json:"chunks"`
}

// UpdateChunkRequest represents the HTTP request payload for replacing a
// chunk's metadata.
type UpdateChunkRequest struct {
	Metadata storage.Metadata `json:"metadata"`
}

// Add handles POST /api/libraries/{libraryID}/documents/{documentID}/chunks.
func (h *ChunkHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var req AddChunksRequest
	var target any = &req
	if len(raw) > 0 && raw[0] == '[' {
		target = &req.Chunks
	}
	if err := json.Unmarshal(raw, target); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inputs := make([]storage.ChunkInput, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		inputs = append(inputs, storage.ChunkInput{
			Text:      c.Text,
			Embedding: c.Embedding,
			Metadata:  c.Metadata,
		})
	}

	chunks, err := h.store.AddChunks(ctx, chi.URLParam(r, "libraryID"), chi.URLParam(r, "documentID"), inputs)
	if err != nil {
		writeStoreError(w, r, err, "Failed to add chunks")
		return
	}
	writeJSON(w, http.StatusCreated, chunks)
}

// List handles GET /api/libraries/{libraryID}/documents/{documentID}/chunks.
func (h *ChunkHandler) List(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.store.ListChunks(r.Context(), chi.URLParam(r, "libraryID"), chi.URLParam(r, "documentID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to list chunks")
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

// Get handles GET /api/libraries/{libraryID}/chunks/{chunkID}.
func (h *ChunkHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetChunk(r.Context(), chi.URLParam(r, "libraryID"), chi.URLParam(r, "chunkID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to get chunk")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PATCH /api/libraries/{libraryID}/chunks/{chunkID}. Only the
// metadata map is mutable; text and embedding are fixed at insert.
func (h *ChunkHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpdateChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.store.UpdateChunkMetadata(ctx, chi.URLParam(r, "libraryID"), chi.URLParam(r, "chunkID"), req.Metadata)
	if err != nil {
		writeStoreError(w, r, err, "Failed to update chunk")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/libraries/{libraryID}/chunks/{chunkID}.
func (h *ChunkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteChunk(r.Context(), chi.URLParam(r, "libraryID"), chi.URLParam(r, "chunkID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to delete chunk")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
