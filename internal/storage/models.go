package storage

import (
	"time"

	"vectoria/internal/index"
)

// Library is the top-level container. It owns documents and a single current
// index. Dimension is 0 until the first chunk is inserted and fixed after.
type Library struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Metadata     Metadata   `json:"metadata,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	IndexKind    index.Kind `json:"index_kind"`
	IndexBuiltAt *time.Time `json:"index_built_at,omitempty"`
	Dimension    int        `json:"dimension,omitempty"`
}

// Document is a logical text unit within a library. It owns chunks.
type Document struct {
	ID        string    `json:"id"`
	LibraryID string    `json:"library_id"`
	Name      string    `json:"name"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is an indexed unit: text, an embedding of the library's dimension,
// and metadata. Immutable apart from its metadata map.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	LibraryID  string    `json:"library_id"`
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkInput is the caller-supplied part of a chunk; ids and timestamps are
// minted by the store.
type ChunkInput struct {
	Text      string
	Embedding []float64
	Metadata  Metadata
}

func (l *Library) clone() *Library {
	out := *l
	out.Metadata = l.Metadata.Clone()
	if l.IndexBuiltAt != nil {
		t := *l.IndexBuiltAt
		out.IndexBuiltAt = &t
	}
	return &out
}

func (d *Document) clone() *Document {
	out := *d
	out.Metadata = d.Metadata.Clone()
	return &out
}

// Embeddings are immutable once stored, so clones share the vector.
func (c *Chunk) clone() *Chunk {
	out := *c
	out.Metadata = c.Metadata.Clone()
	return &out
}
