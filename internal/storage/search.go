package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"vectoria/internal/index"
	"vectoria/internal/vecmath"
)

// SearchHit is one ranked result with its resolved chunk.
type SearchHit struct {
	Chunk    *Chunk  `json:"chunk"`
	Distance float64 `json:"distance"`
}

// searchFanout bounds the number of libraries searched concurrently by
// SearchMany.
const searchFanout = 4

// Search runs k-NN over one library, applying the metadata filter during
// candidate scoring. A STALE or EMPTY index is built first; concurrent
// searchers share a single build.
func (s *Store) Search(ctx context.Context, libID string, query []float64, k int, filter Filter) ([]SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, ErrInvalid)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("query embedding must not be empty: %w", ErrInvalid)
	}
	if !vecmath.IsFinite(query) {
		return nil, fmt.Errorf("query embedding contains non-finite values: %w", ErrInvalid)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}

	for {
		l.mu.RLock()
		if len(l.chunks) == 0 {
			l.mu.RUnlock()
			return []SearchHit{}, nil
		}
		if l.rec.Dimension != len(query) {
			dim := l.rec.Dimension
			l.mu.RUnlock()
			return nil, fmt.Errorf("query has %d dimensions, library expects %d: %w",
				len(query), dim, ErrInvalid)
		}
		if l.state != stateReady {
			l.mu.RUnlock()
			if err := s.ensureIndex(ctx, l); err != nil {
				return nil, err
			}
			continue
		}

		var accept index.Accept
		if len(filter) > 0 {
			accept = func(id string) bool {
				c, ok := l.chunks[id]
				if !ok {
					return false
				}
				doc := l.docs[c.DocumentID]
				var docMeta Metadata
				if doc != nil {
					docMeta = doc.Metadata
				}
				return filter.Matches(c.Metadata, docMeta)
			}
		}

		hits := l.idx.Search(query, k, accept)
		out := make([]SearchHit, 0, len(hits))
		for _, h := range hits {
			if c, ok := l.chunks[h.ID]; ok {
				out = append(out, SearchHit{Chunk: c.clone(), Distance: h.Distance})
			}
		}
		strict := l.rec.IndexKind == index.KindLSH && s.lshConfig.Strict
		l.mu.RUnlock()

		if strict && len(out) < k && len(filter) == 0 {
			return out, fmt.Errorf("approximate search returned %d of %d results: %w",
				len(out), k, ErrDegraded)
		}
		return out, nil
	}
}

// LibraryResult is one library's slice of a cross-library search.
type LibraryResult struct {
	Hits []SearchHit
	Err  error
}

// SearchMany fans a query out over several libraries with bounded
// concurrency. Each library is searched under its own read lease; no global
// consistent cut is taken. Per-library failures are reported in the result,
// not returned.
func (s *Store) SearchMany(ctx context.Context, libIDs []string, query []float64, k int, filter Filter) map[string]LibraryResult {
	if len(libIDs) == 0 {
		s.mu.RLock()
		for id := range s.libs {
			libIDs = append(libIDs, id)
		}
		s.mu.RUnlock()
	}

	results := make(map[string]LibraryResult, len(libIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(searchFanout)
	for _, libID := range libIDs {
		g.Go(func() error {
			hits, err := s.Search(ctx, libID, query, k, filter)
			mu.Lock()
			results[libID] = LibraryResult{Hits: hits, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Suggestions returns up to limit words from the library's chunk text that
// extend the given prefix.
func (s *Store) Suggestions(ctx context.Context, libID, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	prefix = strings.ToLower(prefix)

	l.mu.RLock()
	seen := make(map[string]struct{})
	for _, c := range l.chunks {
		for _, word := range strings.Fields(strings.ToLower(c.Text)) {
			word = strings.Trim(word, ".,;:!?\"'()[]")
			if len(word) > len(prefix) && strings.HasPrefix(word, prefix) {
				seen[word] = struct{}{}
			}
		}
		if len(seen) >= limit*4 {
			break
		}
	}
	l.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Analytics summarizes a library's search surface: entity counts, average
// chunk length, embedding dimension and index info.
type Analytics struct {
	LibraryID          string       `json:"library_id"`
	TotalDocuments     int          `json:"total_documents"`
	TotalChunks        int          `json:"total_chunks"`
	AverageChunkLength float64      `json:"average_chunk_length"`
	EmbeddingDimension int          `json:"embedding_dimension"`
	IndexState         string       `json:"index_state"`
	Index              *index.Stats `json:"index,omitempty"`
}

// SearchAnalytics returns analytics for one library.
func (s *Store) SearchAnalytics(ctx context.Context, libID string) (*Analytics, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	a := &Analytics{
		LibraryID:          libID,
		TotalDocuments:     len(l.docs),
		TotalChunks:        len(l.chunks),
		EmbeddingDimension: l.rec.Dimension,
		IndexState:         l.state.String(),
	}
	if len(l.chunks) > 0 {
		total := 0
		for _, c := range l.chunks {
			total += len(c.Text)
		}
		a.AverageChunkLength = float64(total) / float64(len(l.chunks))
	}
	if l.idx != nil {
		st := l.idx.Stats()
		a.Index = &st
	}
	return a, nil
}
