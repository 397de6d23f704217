package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vectoria/internal/contextutil"
	"vectoria/internal/vecmath"
)

// snapshotVersion is the current snapshot format version. Unknown versions
// fail decode.
const snapshotVersion = 1

// snapshotFile is the single self-describing on-disk record. Entities appear
// in dependency order; materialized indexes are never persisted, only each
// library's index configuration (carried on the Library record itself).
type snapshotFile struct {
	Version   int         `json:"version"`
	Libraries []*Library  `json:"libraries"`
	Documents []*Document `json:"documents"`
	Chunks    []*Chunk    `json:"chunks"`
}

// SaveSnapshot serializes the whole store to the configured snapshot path,
// writing to a temp file and renaming so a crash never leaves a partial
// snapshot. A no-op when no snapshot path is configured.
func (s *Store) SaveSnapshot(ctx context.Context) error {
	if s.snapshot == "" {
		return nil
	}

	snap := snapshotFile{Version: snapshotVersion}

	s.mu.RLock()
	handles := make([]*library, 0, len(s.libs))
	for _, l := range s.libs {
		handles = append(handles, l)
	}
	s.mu.RUnlock()

	for _, l := range handles {
		l.mu.RLock()
		snap.Libraries = append(snap.Libraries, l.rec.clone())
		for _, docID := range l.docOrder {
			snap.Documents = append(snap.Documents, l.docs[docID].clone())
			for _, chunkID := range l.byDocument[docID] {
				snap.Chunks = append(snap.Chunks, l.chunks[chunkID].clone())
			}
		}
		l.mu.RUnlock()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.snapshot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.snapshot)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.snapshot); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	contextutil.LoggerFromContext(ctx).Info("snapshot written",
		"path", s.snapshot,
		"libraries", len(snap.Libraries),
		"documents", len(snap.Documents),
		"chunks", len(snap.Chunks))
	return nil
}

// LoadSnapshot restores the store from the configured snapshot path. The
// load is all-or-nothing: a missing file is not an error, but a partial or
// corrupt file fails decode and leaves the store unchanged. Indexes are not
// persisted and rebuild on first search.
func (s *Store) LoadSnapshot(ctx context.Context) error {
	if s.snapshot == "" {
		return nil
	}
	data, err := os.ReadFile(s.snapshot)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	libs, err := rebuild(&snap)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	s.mu.Lock()
	s.libs = libs
	s.mu.Unlock()

	contextutil.LoggerFromContext(ctx).Info("snapshot loaded",
		"path", s.snapshot,
		"libraries", len(snap.Libraries),
		"documents", len(snap.Documents),
		"chunks", len(snap.Chunks))
	return nil
}

// rebuild reconstructs the library aggregates from snapshot arrays, checking
// referential integrity and dimension stability before anything is installed.
func rebuild(snap *snapshotFile) (map[string]*library, error) {
	libs := make(map[string]*library, len(snap.Libraries))
	for _, rec := range snap.Libraries {
		if rec.ID == "" {
			return nil, errors.New("library with empty id")
		}
		if !rec.IndexKind.Valid() {
			return nil, fmt.Errorf("library %s: unknown index kind %q", rec.ID, rec.IndexKind)
		}
		libs[rec.ID] = &library{
			rec:        *rec,
			docs:       make(map[string]*Document),
			chunks:     make(map[string]*Chunk),
			byDocument: make(map[string][]string),
		}
	}
	for _, doc := range snap.Documents {
		l, ok := libs[doc.LibraryID]
		if !ok {
			return nil, fmt.Errorf("document %s references unknown library %s", doc.ID, doc.LibraryID)
		}
		l.docs[doc.ID] = doc
		l.docOrder = append(l.docOrder, doc.ID)
	}
	for _, c := range snap.Chunks {
		l, ok := libs[c.LibraryID]
		if !ok {
			return nil, fmt.Errorf("chunk %s references unknown library %s", c.ID, c.LibraryID)
		}
		doc, ok := l.docs[c.DocumentID]
		if !ok {
			return nil, fmt.Errorf("chunk %s references unknown document %s", c.ID, c.DocumentID)
		}
		if doc.LibraryID != c.LibraryID {
			return nil, fmt.Errorf("chunk %s library %s disagrees with document library %s",
				c.ID, c.LibraryID, doc.LibraryID)
		}
		if len(c.Embedding) != l.rec.Dimension {
			return nil, fmt.Errorf("chunk %s has %d dimensions, library %s expects %d",
				c.ID, len(c.Embedding), c.LibraryID, l.rec.Dimension)
		}
		if !vecmath.IsFinite(c.Embedding) {
			return nil, fmt.Errorf("chunk %s embedding contains non-finite values", c.ID)
		}
		l.chunks[c.ID] = c
		l.byDocument[c.DocumentID] = append(l.byDocument[c.DocumentID], c.ID)
	}
	// Indexes rebuild lazily; a library that had one is stale until then.
	for _, l := range libs {
		if l.rec.IndexBuiltAt != nil && len(l.chunks) > 0 {
			l.state = stateStale
		}
	}
	return libs, nil
}
