package storage

import (
	"context"
	"errors"
	"testing"

	"vectoria/internal/index"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Options{DefaultIndexKind: index.KindLinear})
}

// seedLibrary creates a library with one document and the three axis chunks
// used throughout the search scenarios.
func seedLibrary(t *testing.T, s *Store) (libID, docID string) {
	t.Helper()
	ctx := context.Background()

	lib, err := s.CreateLibrary(ctx, "L1", "test library", nil)
	if err != nil {
		t.Fatalf("CreateLibrary() error = %v", err)
	}
	doc, err := s.CreateDocument(ctx, lib.ID, "D1", nil)
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	_, err = s.AddChunks(ctx, lib.ID, doc.ID, []ChunkInput{
		{Text: "alpha", Embedding: []float64{1, 0, 0}},
		{Text: "beta", Embedding: []float64{0, 1, 0}},
		{Text: "gamma", Embedding: []float64{0, 0, 1}},
	})
	if err != nil {
		t.Fatalf("AddChunks() error = %v", err)
	}
	return lib.ID, doc.ID
}

func TestCreateLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lib, err := s.CreateLibrary(ctx, "L1", "desc", Metadata{"team": String("search")})
	if err != nil {
		t.Fatalf("CreateLibrary() error = %v", err)
	}
	if lib.ID == "" {
		t.Error("library ID is empty")
	}
	if lib.IndexKind != index.KindLinear {
		t.Errorf("IndexKind = %q, want default linear", lib.IndexKind)
	}
	if lib.Dimension != 0 {
		t.Errorf("Dimension = %d, want 0 before first chunk", lib.Dimension)
	}

	if _, err := s.CreateLibrary(ctx, "", "", nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("CreateLibrary(empty name) error = %v, want ErrInvalid", err)
	}
}

func TestGetLibraryNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetLibrary(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLibrary() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lib, _ := s.CreateLibrary(ctx, "old", "", nil)

	name := "new"
	updated, err := s.UpdateLibrary(ctx, lib.ID, LibraryUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateLibrary() error = %v", err)
	}
	if updated.Name != "new" {
		t.Errorf("Name = %q, want %q", updated.Name, "new")
	}
	if !updated.UpdatedAt.After(lib.UpdatedAt) && !updated.UpdatedAt.Equal(lib.UpdatedAt) {
		t.Error("UpdatedAt did not advance")
	}
}

func TestDimensionFixedOnFirstChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	lib, err := s.GetLibrary(ctx, libID)
	if err != nil {
		t.Fatalf("GetLibrary() error = %v", err)
	}
	if lib.Dimension != 3 {
		t.Errorf("Dimension = %d, want 3", lib.Dimension)
	}

	_, err = s.AddChunks(ctx, libID, docID, []ChunkInput{
		{Text: "bad", Embedding: []float64{1, 2}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("AddChunks(wrong dim) error = %v, want ErrConflict", err)
	}
}

func TestAddChunksRejectsNonFinite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	nan := 0.0
	nan /= nan
	_, err := s.AddChunks(ctx, libID, docID, []ChunkInput{
		{Text: "bad", Embedding: []float64{nan, 0, 0}},
	})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("AddChunks(NaN) error = %v, want ErrInvalid", err)
	}
}

func TestAddChunksAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	// Second chunk in the batch is invalid; the first must not land either.
	_, err := s.AddChunks(ctx, libID, docID, []ChunkInput{
		{Text: "good", Embedding: []float64{0.5, 0.5, 0}},
		{Text: "bad", Embedding: []float64{1}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("AddChunks() error = %v, want ErrConflict", err)
	}
	chunks, err := s.ListChunks(ctx, libID, docID)
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("chunk count = %d after failed batch, want 3", len(chunks))
	}
}

func TestChunkOrderingIsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	chunks, err := s.ListChunks(ctx, libID, docID)
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	for i, c := range chunks {
		if c.Text != want[i] {
			t.Errorf("chunks[%d].Text = %q, want %q", i, c.Text, want[i])
		}
	}
}

func TestReferentialIntegrity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	chunks, _ := s.ListChunks(ctx, libID, docID)
	for _, c := range chunks {
		if _, err := s.GetLibrary(ctx, c.LibraryID); err != nil {
			t.Errorf("chunk %s library_id does not resolve: %v", c.ID, err)
		}
		doc, err := s.GetDocument(ctx, c.LibraryID, c.DocumentID)
		if err != nil {
			t.Errorf("chunk %s document_id does not resolve: %v", c.ID, err)
			continue
		}
		if doc.LibraryID != c.LibraryID {
			t.Errorf("chunk %s: document library %s != chunk library %s", c.ID, doc.LibraryID, c.LibraryID)
		}
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	if err := s.DeleteDocument(ctx, libID, docID); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := s.GetDocument(ctx, libID, docID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument() after delete error = %v, want ErrNotFound", err)
	}
	stats, err := s.IndexStats(ctx, libID)
	if err != nil {
		t.Fatalf("IndexStats() error = %v", err)
	}
	if stats.Chunks != 0 {
		t.Errorf("chunk count = %d after document delete, want 0", stats.Chunks)
	}
}

func TestDeleteLibraryCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, _ := seedLibrary(t, s)

	if err := s.DeleteLibrary(ctx, libID); err != nil {
		t.Fatalf("DeleteLibrary() error = %v", err)
	}
	if _, err := s.GetLibrary(ctx, libID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLibrary() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteLibrary(ctx, libID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteLibrary() error = %v, want ErrNotFound", err)
	}
	if got := s.Stats(ctx); got.Documents != 0 || got.Chunks != 0 {
		t.Errorf("Stats() after cascade = %+v, want zero documents and chunks", got)
	}
}

func TestDeleteChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	chunks, _ := s.ListChunks(ctx, libID, docID)
	if err := s.DeleteChunk(ctx, libID, chunks[1].ID); err != nil {
		t.Fatalf("DeleteChunk() error = %v", err)
	}
	rest, _ := s.ListChunks(ctx, libID, docID)
	if len(rest) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(rest))
	}
	if rest[0].Text != "alpha" || rest[1].Text != "gamma" {
		t.Errorf("remaining chunks = [%s %s], want [alpha gamma]", rest[0].Text, rest[1].Text)
	}
}

func TestUpdateChunkMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	chunks, _ := s.ListChunks(ctx, libID, docID)
	updated, err := s.UpdateChunkMetadata(ctx, libID, chunks[0].ID, Metadata{"section": String("intro")})
	if err != nil {
		t.Fatalf("UpdateChunkMetadata() error = %v", err)
	}
	if !updated.Metadata["section"].Equal(String("intro")) {
		t.Errorf("Metadata[section] = %v, want intro", updated.Metadata["section"])
	}
	if updated.Text != chunks[0].Text {
		t.Error("chunk text changed; only metadata is mutable")
	}
}

func TestBuildIndexEmptyLibraryConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lib, _ := s.CreateLibrary(ctx, "empty", "", nil)

	err := s.BuildIndex(ctx, lib.ID, index.KindLinear)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("BuildIndex(empty library) error = %v, want ErrConflict", err)
	}
}

func TestBuildIndexUnknownKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, _ := seedLibrary(t, s)

	if err := s.BuildIndex(ctx, libID, index.Kind("hnsw")); !errors.Is(err, ErrInvalid) {
		t.Errorf("BuildIndex(unknown kind) error = %v, want ErrInvalid", err)
	}
}

func TestIndexStateTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, docID := seedLibrary(t, s)

	stats, _ := s.IndexStats(ctx, libID)
	if stats.IndexState != "empty" {
		t.Errorf("state before build = %q, want empty", stats.IndexState)
	}

	if err := s.BuildIndex(ctx, libID, index.KindKDTree); err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	stats, _ = s.IndexStats(ctx, libID)
	if stats.IndexState != "ready" {
		t.Errorf("state after build = %q, want ready", stats.IndexState)
	}
	if stats.Index == nil || stats.Index.Kind != index.KindKDTree {
		t.Fatalf("Index stats = %+v, want kdtree", stats.Index)
	}

	if _, err := s.AddChunks(ctx, libID, docID, []ChunkInput{
		{Text: "delta", Embedding: []float64{1, 1, 0}},
	}); err != nil {
		t.Fatalf("AddChunks() error = %v", err)
	}
	stats, _ = s.IndexStats(ctx, libID)
	if stats.IndexState != "stale" {
		t.Errorf("state after write = %q, want stale", stats.IndexState)
	}
}

func TestLibraryRecordsBuild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	libID, _ := seedLibrary(t, s)

	if err := s.BuildIndex(ctx, libID, index.KindLSH); err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	lib, _ := s.GetLibrary(ctx, libID)
	if lib.IndexKind != index.KindLSH {
		t.Errorf("IndexKind = %q, want lsh", lib.IndexKind)
	}
	if lib.IndexBuiltAt == nil {
		t.Error("IndexBuiltAt is nil after build")
	}
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedLibrary(t, s)
	seedLibrary(t, s)

	got := s.Stats(ctx)
	if got.Libraries != 2 || got.Documents != 2 || got.Chunks != 6 {
		t.Errorf("Stats() = %+v, want 2 libraries, 2 documents, 6 chunks", got)
	}
	if got.SnapshotEnabled {
		t.Error("SnapshotEnabled = true without a snapshot path")
	}
}
