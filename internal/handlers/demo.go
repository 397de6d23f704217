package handlers

import (
	"net/http"

	"vectoria/internal/contextutil"
	"vectoria/internal/embeddings"
	"vectoria/internal/storage"
)

// demoCorpus is the fixed text set seeded by the demo endpoint. Metadata is
// chosen so the seeded library exercises equality, membership and range
// filters out of the box.
var demoCorpus = []struct {
	Text     string
	Metadata storage.Metadata
}{
	{
		Text:     "Vector databases index high-dimensional embeddings for nearest-neighbour search.",
		Metadata: storage.Metadata{"topic": storage.String("databases"), "year": storage.Int(2023)},
	},
	{
		Text:     "A KD-tree partitions points by splitting on the axis of maximum variance.",
		Metadata: storage.Metadata{"topic": storage.String("indexing"), "year": storage.Int(2021)},
	},
	{
		Text:     "Locality-sensitive hashing trades exactness for sub-linear candidate generation.",
		Metadata: storage.Metadata{"topic": storage.String("indexing"), "year": storage.Int(2022)},
	},
	{
		Text:     "Cosine similarity compares the angle between two vectors regardless of magnitude.",
		Metadata: storage.Metadata{"topic": storage.String("metrics"), "year": storage.Int(2020)},
	},
	{
		Text:     "Readers and writers coordinate through per-library locks to keep queries consistent.",
		Metadata: storage.Metadata{"topic": storage.String("concurrency"), "year": storage.Int(2024)},
	},
}

// DemoHandler seeds a ready-to-query demo library through the embedding
// backend. It is the end-to-end smoke path: embed, store, index.
type DemoHandler struct {
	store    *storage.Store
	provider embeddings.Provider
}

// NewDemoHandler creates a new DemoHandler. provider may be nil, in which
// case seeding is rejected.
func NewDemoHandler(store *storage.Store, provider embeddings.Provider) *DemoHandler {
	return &DemoHandler{store: store, provider: provider}
}

// DemoSeedResponse represents the HTTP response payload for a demo seed.
type DemoSeedResponse struct {
	LibraryID  string `json:"library_id"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// ServeHTTP handles POST /api/demo/seed.
func (h *DemoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.provider == nil {
		writeError(w, http.StatusBadRequest, "Demo seeding requires an embedding backend")
		return
	}

	texts := make([]string, len(demoCorpus))
	for i, entry := range demoCorpus {
		texts[i] = entry.Text
	}
	vectors, err := h.provider.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed demo corpus", "error", err)
		writeError(w, http.StatusBadGateway, "Embedding service unavailable")
		return
	}

	lib, err := h.store.CreateLibrary(ctx, "demo", "Seeded demo corpus", nil)
	if err != nil {
		writeStoreError(w, r, err, "Failed to create demo library")
		return
	}
	doc, err := h.store.CreateDocument(ctx, lib.ID, "demo-notes", nil)
	if err != nil {
		writeStoreError(w, r, err, "Failed to create demo document")
		return
	}

	inputs := make([]storage.ChunkInput, len(demoCorpus))
	for i, entry := range demoCorpus {
		inputs[i] = storage.ChunkInput{
			Text:      entry.Text,
			Embedding: vectors[i],
			Metadata:  entry.Metadata,
		}
	}
	chunks, err := h.store.AddChunks(ctx, lib.ID, doc.ID, inputs)
	if err != nil {
		writeStoreError(w, r, err, "Failed to add demo chunks")
		return
	}

	if err := h.store.BuildIndex(ctx, lib.ID, lib.IndexKind); err != nil {
		writeStoreError(w, r, err, "Failed to build demo index")
		return
	}

	logger.InfoContext(ctx, "demo library seeded", "library_id", lib.ID, "chunks", len(chunks))
	writeJSON(w, http.StatusCreated, DemoSeedResponse{
		LibraryID:  lib.ID,
		DocumentID: doc.ID,
		Chunks:     len(chunks),
	})
}
