package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vectoria/internal/contextutil"
	"vectoria/internal/embeddings"
	"vectoria/internal/storage"
)

// IngestHandler embeds raw texts through the configured provider and inserts
// the resulting chunks in one atomic batch.
type IngestHandler struct {
	store    *storage.Store
	provider embeddings.Provider
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(store *storage.Store, provider embeddings.Provider) *IngestHandler {
	return &IngestHandler{store: store, provider: provider}
}

// IngestRequest represents the HTTP request payload for text ingestion.
// Metadata, when present, is attached to every resulting chunk.
type IngestRequest struct {
	Texts    []string         `json:"texts"`
	Metadata storage.Metadata `json:"metadata,omitempty"`
}

// ServeHTTP handles POST /api/libraries/{libraryID}/documents/{documentID}/ingest.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.provider == nil {
		writeError(w, http.StatusBadRequest, "Ingestion requires an embedding backend")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts must not be empty")
		return
	}

	vectors, err := h.provider.EmbedTexts(ctx, req.Texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed texts", "error", err)
		writeError(w, http.StatusBadGateway, "Embedding service unavailable")
		return
	}

	inputs := make([]storage.ChunkInput, 0, len(req.Texts))
	for i, text := range req.Texts {
		inputs = append(inputs, storage.ChunkInput{
			Text:      text,
			Embedding: vectors[i],
			Metadata:  req.Metadata,
		})
	}

	chunks, err := h.store.AddChunks(ctx, chi.URLParam(r, "libraryID"), chi.URLParam(r, "documentID"), inputs)
	if err != nil {
		writeStoreError(w, r, err, "Failed to add chunks")
		return
	}
	writeJSON(w, http.StatusCreated, chunks)
}
