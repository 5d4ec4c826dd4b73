// Package index implements the document store and indexer: it embeds
// normalized text chunks, persists them in an embedded vector database
// (chromem-go) and exposes deterministic cosine nearest-neighbor search.
// Re-ingesting a source replaces every chunk sharing its source id, so
// ingestion is idempotent and survives process restarts when a persistence
// path is configured.
package index
