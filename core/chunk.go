package core

import "fmt"

// SourceMetadata describes where a chunk came from within its source
// document.
type SourceMetadata struct {
	Title  string `json:"title"`
	Kind   string `json:"kind"`   // e.g. "plot", "review", "metadata"
	Offset int    `json:"offset"` // ordinal position within the source
}

// DocumentChunk is a bounded span of source text stored with its own
// embedding for similarity search. Chunks are immutable after indexing;
// re-ingesting a source replaces every chunk sharing its SourceID.
type DocumentChunk struct {
	ID        string         `json:"id"`
	SourceID  string         `json:"source_id"`
	Text      string         `json:"text"`
	Source    SourceMetadata `json:"source"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// ChunkID derives the stable identifier for the chunk at the given ordinal
// of a source. Identical source and ordinal always yield the same id, which
// is what makes re-ingestion idempotent.
func ChunkID(sourceID string, ordinal int) string {
	return fmt.Sprintf("%s#%04d", sourceID, ordinal)
}

// ScoredChunk pairs a chunk with its similarity score for a query.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}
