package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vectoria/internal/contextutil"
	"vectoria/internal/index"
	"vectoria/internal/vecmath"
)

// indexState is the per-library index lifecycle:
// EMPTY -> BUILDING -> READY -> STALE -> BUILDING -> ...
type indexState int

const (
	stateEmpty indexState = iota
	stateBuilding
	stateReady
	stateStale
)

func (s indexState) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateReady:
		return "ready"
	case stateStale:
		return "stale"
	}
	return "empty"
}

// library is the per-library aggregate: its record, documents, chunks, index
// object and index state, all guarded by one readers/writer lock.
type library struct {
	mu sync.RWMutex

	rec      Library
	docs     map[string]*Document
	docOrder []string
	chunks   map[string]*Chunk
	// byDocument keeps chunk ids in insertion order per document.
	byDocument map[string][]string

	idx   index.Index
	state indexState
	// buildDone is non-nil while a build is in flight; waiters block on it.
	buildDone chan struct{}
	// gen counts chunk mutations so a finished build can tell whether a
	// write raced it.
	gen uint64
}

// Options configures a Store.
type Options struct {
	// DefaultIndexKind is assigned to new libraries. Empty means linear.
	DefaultIndexKind index.Kind
	// LSH configures every LSH index the store constructs.
	LSH index.LSHConfig
	// SnapshotPath enables durable snapshots when non-empty.
	SnapshotPath string
}

// Store is the thread-safe in-memory entity store. The catalogue lock guards
// library membership; each library aggregate has its own lock. The store
// exclusively owns all entities; indexes hold chunk ids only.
type Store struct {
	mu   sync.RWMutex
	libs map[string]*library

	defaultKind index.Kind
	lshConfig   index.LSHConfig
	snapshot    string
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	kind := opts.DefaultIndexKind
	if kind == "" {
		kind = index.KindLinear
	}
	return &Store{
		libs:        make(map[string]*library),
		defaultKind: kind,
		lshConfig:   opts.LSH,
		snapshot:    opts.SnapshotPath,
	}
}

// SnapshotEnabled reports whether a snapshot path is configured.
func (s *Store) SnapshotEnabled() bool { return s.snapshot != "" }

// lib looks up a library handle under the catalogue read lock.
func (s *Store) lib(id string) (*library, error) {
	s.mu.RLock()
	l, ok := s.libs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// CreateLibrary creates an empty library with the store's default index kind.
func (s *Store) CreateLibrary(ctx context.Context, name, description string, meta Metadata) (*Library, error) {
	if name == "" {
		return nil, fmt.Errorf("library name must not be empty: %w", ErrInvalid)
	}
	now := time.Now().UTC()
	l := &library{
		rec: Library{
			ID:          uuid.New().String(),
			Name:        name,
			Description: description,
			Metadata:    meta.Clone(),
			CreatedAt:   now,
			UpdatedAt:   now,
			IndexKind:   s.defaultKind,
		},
		docs:       make(map[string]*Document),
		chunks:     make(map[string]*Chunk),
		byDocument: make(map[string][]string),
	}

	s.mu.Lock()
	s.libs[l.rec.ID] = l
	s.mu.Unlock()

	contextutil.LoggerFromContext(ctx).Info("library created", "library_id", l.rec.ID, "name", name)
	return l.rec.clone(), nil
}

// ListLibraries returns all libraries.
func (s *Store) ListLibraries(ctx context.Context) []*Library {
	s.mu.RLock()
	handles := make([]*library, 0, len(s.libs))
	for _, l := range s.libs {
		handles = append(handles, l)
	}
	s.mu.RUnlock()

	out := make([]*Library, 0, len(handles))
	for _, l := range handles {
		l.mu.RLock()
		out = append(out, l.rec.clone())
		l.mu.RUnlock()
	}
	return out
}

// GetLibrary returns one library by id.
func (s *Store) GetLibrary(ctx context.Context, id string) (*Library, error) {
	l, err := s.lib(id)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rec.clone(), nil
}

// LibraryUpdate carries optional library field updates.
type LibraryUpdate struct {
	Name        *string
	Description *string
	Metadata    Metadata
}

// UpdateLibrary applies the non-nil fields of upd.
func (s *Store) UpdateLibrary(ctx context.Context, id string, upd LibraryUpdate) (*Library, error) {
	l, err := s.lib(id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, fmt.Errorf("library name must not be empty: %w", ErrInvalid)
		}
		l.rec.Name = *upd.Name
	}
	if upd.Description != nil {
		l.rec.Description = *upd.Description
	}
	if upd.Metadata != nil {
		l.rec.Metadata = upd.Metadata.Clone()
	}
	l.rec.UpdatedAt = time.Now().UTC()
	return l.rec.clone(), nil
}

// DeleteLibrary removes a library and cascades to its documents, chunks and
// index.
func (s *Store) DeleteLibrary(ctx context.Context, id string) error {
	s.mu.Lock()
	l, ok := s.libs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	delete(s.libs, id)
	s.mu.Unlock()

	// Dropping the aggregate drops documents, chunks and the index with it;
	// wait out any in-flight build so it cannot resurrect state.
	l.mu.Lock()
	done := l.buildDone
	l.mu.Unlock()
	if done != nil {
		<-done
	}
	contextutil.LoggerFromContext(ctx).Info("library deleted", "library_id", id)
	return nil
}

// CreateDocument creates a document in an existing library.
func (s *Store) CreateDocument(ctx context.Context, libID, name string, meta Metadata) (*Document, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		ID:        uuid.New().String(),
		LibraryID: libID,
		Name:      name,
		Metadata:  meta.Clone(),
		CreatedAt: time.Now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[doc.ID] = doc
	l.docOrder = append(l.docOrder, doc.ID)
	l.byDocument[doc.ID] = nil
	l.rec.UpdatedAt = doc.CreatedAt
	return doc.clone(), nil
}

// ListDocuments returns a library's documents in insertion order.
func (s *Store) ListDocuments(ctx context.Context, libID string) ([]*Document, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Document, 0, len(l.docOrder))
	for _, id := range l.docOrder {
		out = append(out, l.docs[id].clone())
	}
	return out, nil
}

// GetDocument returns one document by id.
func (s *Store) GetDocument(ctx context.Context, libID, docID string) (*Document, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	return doc.clone(), nil
}

// DeleteDocument removes a document and cascades to its chunks.
func (s *Store) DeleteDocument(ctx context.Context, libID, docID string) error {
	l, err := s.lib(libID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.docs[docID]; !ok {
		return fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	for _, chunkID := range l.byDocument[docID] {
		delete(l.chunks, chunkID)
	}
	delete(l.byDocument, docID)
	delete(l.docs, docID)
	for i, id := range l.docOrder {
		if id == docID {
			l.docOrder = append(l.docOrder[:i], l.docOrder[i+1:]...)
			break
		}
	}
	l.markDirtyLocked()
	return nil
}

// AddChunks appends chunks to a document atomically: either every chunk is
// validated and inserted or none are.
func (s *Store) AddChunks(ctx context.Context, libID, docID string, inputs []ChunkInput) ([]*Chunk, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("chunk batch must not be empty: %w", ErrInvalid)
	}
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.docs[docID]; !ok {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	dim := l.rec.Dimension
	for i, in := range inputs {
		if len(in.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %d: embedding must not be empty: %w", i, ErrInvalid)
		}
		if !vecmath.IsFinite(in.Embedding) {
			return nil, fmt.Errorf("chunk %d: embedding contains non-finite values: %w", i, ErrInvalid)
		}
		if dim == 0 {
			dim = len(in.Embedding)
		} else if len(in.Embedding) != dim {
			return nil, fmt.Errorf("chunk %d: embedding has %d dimensions, library expects %d: %w",
				i, len(in.Embedding), dim, ErrConflict)
		}
	}

	now := time.Now().UTC()
	out := make([]*Chunk, 0, len(inputs))
	for _, in := range inputs {
		c := &Chunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			LibraryID:  libID,
			Text:       in.Text,
			Embedding:  in.Embedding,
			Metadata:   in.Metadata.Clone(),
			CreatedAt:  now,
		}
		l.chunks[c.ID] = c
		l.byDocument[docID] = append(l.byDocument[docID], c.ID)
		out = append(out, c.clone())
	}
	// Dimension is fixed by the first chunk ever inserted.
	l.rec.Dimension = dim
	l.rec.UpdatedAt = now
	l.markDirtyLocked()
	return out, nil
}

// ListChunks returns a document's chunks in insertion order.
func (s *Store) ListChunks(ctx context.Context, libID, docID string) ([]*Chunk, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.docs[docID]; !ok {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	ids := l.byDocument[docID]
	out := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.chunks[id].clone())
	}
	return out, nil
}

// GetChunk returns one chunk by id.
func (s *Store) GetChunk(ctx context.Context, libID, chunkID string) (*Chunk, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.chunks[chunkID]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return c.clone(), nil
}

// UpdateChunkMetadata replaces a chunk's metadata map, the only mutable part
// of a chunk.
func (s *Store) UpdateChunkMetadata(ctx context.Context, libID, chunkID string, meta Metadata) (*Chunk, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chunks[chunkID]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	c.Metadata = meta.Clone()
	l.rec.UpdatedAt = time.Now().UTC()
	l.markDirtyLocked()
	return c.clone(), nil
}

// DeleteChunk removes one chunk.
func (s *Store) DeleteChunk(ctx context.Context, libID, chunkID string) error {
	l, err := s.lib(libID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chunks[chunkID]
	if !ok {
		return fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	delete(l.chunks, chunkID)
	ids := l.byDocument[c.DocumentID]
	for i, id := range ids {
		if id == chunkID {
			l.byDocument[c.DocumentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	l.markDirtyLocked()
	return nil
}

// markDirtyLocked records a chunk mutation: bumps the generation and marks a
// READY index STALE. Caller holds the library write lock.
func (l *library) markDirtyLocked() {
	l.gen++
	if l.state == stateReady {
		l.state = stateStale
	}
}

// BuildIndex builds (or rebuilds) a library's index with the given kind
// synchronously. Building over an empty library is a conflict.
func (s *Store) BuildIndex(ctx context.Context, libID string, kind index.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown index kind %q: %w", kind, ErrInvalid)
	}
	l, err := s.lib(libID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	for l.state == stateBuilding {
		done := l.buildDone
		l.mu.Unlock()
		<-done
		l.mu.Lock()
	}
	defer l.mu.Unlock()

	if len(l.chunks) == 0 {
		return fmt.Errorf("library %s has no chunks to index: %w", libID, ErrConflict)
	}

	idx, err := index.New(kind, s.lshConfig)
	if err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalid)
	}
	idx.Build(l.pointsLocked())

	now := time.Now().UTC()
	l.idx = idx
	l.state = stateReady
	l.rec.IndexKind = kind
	l.rec.IndexBuiltAt = &now
	l.rec.UpdatedAt = now

	contextutil.LoggerFromContext(ctx).Info("index built",
		"library_id", libID, "kind", string(kind), "points", len(l.chunks))
	return nil
}

// pointsLocked snapshots the chunk table as index points. Caller holds at
// least the library read lock.
func (l *library) pointsLocked() []index.Point {
	points := make([]index.Point, 0, len(l.chunks))
	for _, docID := range l.docOrder {
		for _, chunkID := range l.byDocument[docID] {
			c := l.chunks[chunkID]
			points = append(points, index.Point{ID: c.ID, Vector: c.Embedding})
		}
	}
	return points
}

// ensureIndex drives the state machine to READY, coalescing concurrent
// builders: the first caller to observe EMPTY or STALE builds outside the
// lock while the rest wait on the completion channel.
func (s *Store) ensureIndex(ctx context.Context, l *library) error {
	for {
		l.mu.Lock()
		switch l.state {
		case stateReady:
			l.mu.Unlock()
			return nil
		case stateBuilding:
			done := l.buildDone
			l.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// EMPTY or STALE: this caller becomes the builder.
		l.state = stateBuilding
		l.buildDone = make(chan struct{})
		gen := l.gen
		kind := l.rec.IndexKind
		points := l.pointsLocked()
		done := l.buildDone
		l.mu.Unlock()

		idx, err := index.New(kind, s.lshConfig)
		if err == nil {
			idx.Build(points)
		}

		l.mu.Lock()
		l.buildDone = nil
		if err != nil {
			l.state = stateEmpty
			l.mu.Unlock()
			close(done)
			return fmt.Errorf("build index: %w", err)
		}
		now := time.Now().UTC()
		l.idx = idx
		l.rec.IndexBuiltAt = &now
		if l.gen != gen {
			// A write landed mid-build; the index is already stale.
			l.state = stateStale
		} else {
			l.state = stateReady
		}
		l.mu.Unlock()
		close(done)

		contextutil.LoggerFromContext(ctx).Debug("index built lazily",
			"library_id", l.rec.ID, "kind", string(kind), "points", len(points))
	}
}

// LibraryStats summarizes a library and its index.
type LibraryStats struct {
	LibraryID  string       `json:"library_id"`
	Documents  int          `json:"documents"`
	Chunks     int          `json:"chunks"`
	Dimension  int          `json:"dimension"`
	IndexState string       `json:"index_state"`
	Index      *index.Stats `json:"index,omitempty"`
}

// IndexStats returns a library's index stats and entity counts.
func (s *Store) IndexStats(ctx context.Context, libID string) (*LibraryStats, error) {
	l, err := s.lib(libID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := &LibraryStats{
		LibraryID:  libID,
		Documents:  len(l.docs),
		Chunks:     len(l.chunks),
		Dimension:  l.rec.Dimension,
		IndexState: l.state.String(),
	}
	if l.idx != nil {
		st := l.idx.Stats()
		out.Index = &st
	}
	return out, nil
}

// StoreStats summarizes the whole store.
type StoreStats struct {
	Libraries       int  `json:"libraries"`
	Documents       int  `json:"documents"`
	Chunks          int  `json:"chunks"`
	SnapshotEnabled bool `json:"snapshot_enabled"`
}

// Stats returns store-wide entity counts.
func (s *Store) Stats(ctx context.Context) StoreStats {
	s.mu.RLock()
	handles := make([]*library, 0, len(s.libs))
	for _, l := range s.libs {
		handles = append(handles, l)
	}
	s.mu.RUnlock()

	out := StoreStats{Libraries: len(handles), SnapshotEnabled: s.SnapshotEnabled()}
	for _, l := range handles {
		l.mu.RLock()
		out.Documents += len(l.docs)
		out.Chunks += len(l.chunks)
		l.mu.RUnlock()
	}
	return out
}
