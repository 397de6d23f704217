package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vectoria/internal/contextutil"
	"vectoria/internal/embeddings"
	"vectoria/internal/storage"
)

// SearchHandler handles HTTP requests for k-NN search over libraries. When an
// embeddings provider is configured, queries may be given as raw text.
type SearchHandler struct {
	store    *storage.Store
	provider embeddings.Provider
}

// NewSearchHandler creates a new SearchHandler. provider may be nil, in which
// case text queries are rejected.
func NewSearchHandler(store *storage.Store, provider embeddings.Provider) *SearchHandler {
	return &SearchHandler{store: store, provider: provider}
}

// SearchRequest represents the HTTP request payload for a search. Exactly one
// of Embedding or Text must be set.
type SearchRequest struct {
	Embedding []float64      `json:"query_embedding,omitempty"`
	Text      string         `json:"query_text,omitempty"`
	K         int            `json:"k"`
	Filter    storage.Filter `json:"filters,omitempty"`
}

// SearchResponse represents the HTTP response payload for a search.
type SearchResponse struct {
	Hits []storage.SearchHit `json:"hits"`
}

// SearchManyRequest represents the HTTP request payload for a cross-library
// search. Empty LibraryIDs means every library.
type SearchManyRequest struct {
	LibraryIDs []string       `json:"library_ids,omitempty"`
	Embedding  []float64      `json:"query_embedding,omitempty"`
	Text       string         `json:"query_text,omitempty"`
	K          int            `json:"k"`
	Filter     storage.Filter `json:"filters,omitempty"`
}

// LibraryHits is one library's slice of a cross-library search response.
type LibraryHits struct {
	Hits  []storage.SearchHit `json:"hits,omitempty"`
	Error string              `json:"error,omitempty"`
}

// SearchManyResponse represents the HTTP response payload for a cross-library
// search, keyed by library id.
type SearchManyResponse struct {
	Results map[string]LibraryHits `json:"results"`
}

// resolveQuery turns a request's embedding or text into a query vector.
func (h *SearchHandler) resolveQuery(r *http.Request, embedding []float64, text string) ([]float64, int, string) {
	if len(embedding) > 0 && text != "" {
		return nil, http.StatusBadRequest, "Provide either embedding or text, not both"
	}
	if len(embedding) > 0 {
		return embedding, 0, ""
	}
	if text == "" {
		return nil, http.StatusBadRequest, "Query embedding or text is required"
	}
	if h.provider == nil {
		return nil, http.StatusBadRequest, "Text queries require an embedding backend"
	}
	vectors, err := h.provider.EmbedTexts(r.Context(), []string{text})
	if err != nil {
		contextutil.LoggerFromContext(r.Context()).ErrorContext(r.Context(), "failed to embed query", "error", err)
		return nil, http.StatusBadGateway, "Embedding service unavailable"
	}
	return vectors[0], 0, ""
}

// Search handles POST /api/search/libraries/{libraryID}.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query, status, msg := h.resolveQuery(r, req.Embedding, req.Text)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	hits, err := h.store.Search(ctx, chi.URLParam(r, "libraryID"), query, req.K, req.Filter)
	if err != nil {
		writeStoreError(w, r, err, "Failed to search")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Hits: hits})
}

// SearchMany handles POST /api/search/libraries.
func (h *SearchHandler) SearchMany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query, status, msg := h.resolveQuery(r, req.Embedding, req.Text)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	results := h.store.SearchMany(ctx, req.LibraryIDs, query, req.K, req.Filter)
	resp := SearchManyResponse{Results: make(map[string]LibraryHits, len(results))}
	for libID, res := range results {
		lh := LibraryHits{Hits: res.Hits}
		if res.Err != nil {
			lh.Error = res.Err.Error()
		}
		resp.Results[libID] = lh
	}
	writeJSON(w, http.StatusOK, resp)
}

// SuggestionsResponse represents the HTTP response payload for suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Suggestions handles GET /api/libraries/{libraryID}/suggestions?partial_query=...&limit=N.
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("partial_query")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "partial_query is required")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	words, err := h.store.Suggestions(r.Context(), chi.URLParam(r, "libraryID"), prefix, limit)
	if err != nil {
		writeStoreError(w, r, err, "Failed to compute suggestions")
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: words})
}

// Analytics handles GET /api/libraries/{libraryID}/analytics.
func (h *SearchHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.SearchAnalytics(r.Context(), chi.URLParam(r, "libraryID"))
	if err != nil {
		writeStoreError(w, r, err, "Failed to compute analytics")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
