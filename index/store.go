package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/model"
)

// Options configure a Store.
type Options struct {
	// Path enables on-disk persistence when non-empty; an empty path keeps
	// the index in memory only.
	Path string
	// Collection names the chromem collection, default "movie_chunks".
	Collection string
	// Retry bounds the embedding calls made during ingestion.
	Retry  core.RetryPolicy
	Logger logging.Logger
}

// Store indexes document chunks with their embeddings and answers
// nearest-neighbor queries. Reads are safe concurrently; ingestion is
// serialized against reads so a search never observes a partially replaced
// source.
type Store struct {
	mu       sync.RWMutex
	col      *chromem.Collection
	embedder model.Embedder
	retry    core.RetryPolicy
	logger   logging.Logger
}

// NewStore creates a Store over a fresh or previously persisted database.
func NewStore(embedder model.Embedder, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		Collection: "movie_chunks",
		Retry:      core.DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var db *chromem.DB
	if opts.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent index at %s: %w", opts.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always supplied explicitly, so the collection's own
	// embedding func is never invoked.
	col, err := db.GetOrCreateCollection(opts.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", opts.Collection, err)
	}

	return &Store{
		col:      col,
		embedder: embedder,
		retry:    opts.Retry,
		logger:   logging.OrNoOp(opts.Logger),
	}, nil
}

// Ingest embeds and indexes the given chunks, returning the number
// indexed. Chunks are grouped by source id and each source's previous
// chunks are replaced wholesale, which makes repeated ingestion of the
// same source idempotent. Chunks without an explicit ID receive the stable
// per-source ordinal id.
func (s *Store) Ingest(ctx context.Context, chunks []core.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := make(map[string][]core.DocumentChunk)
	var sourceOrder []string
	for _, chunk := range chunks {
		if chunk.SourceID == "" {
			return 0, fmt.Errorf("chunk %q has no source id", chunk.Text)
		}
		if _, seen := bySource[chunk.SourceID]; !seen {
			sourceOrder = append(sourceOrder, chunk.SourceID)
		}
		bySource[chunk.SourceID] = append(bySource[chunk.SourceID], chunk)
	}

	indexed := 0
	for _, sourceID := range sourceOrder {
		if err := s.col.Delete(ctx, map[string]string{"source_id": sourceID}, nil); err != nil {
			return indexed, fmt.Errorf("replace source %s: %w", sourceID, err)
		}

		for ordinal, chunk := range bySource[sourceID] {
			if chunk.ID == "" {
				chunk.ID = core.ChunkID(sourceID, ordinal)
			}
			if chunk.Source.Offset == 0 {
				chunk.Source.Offset = ordinal
			}

			if len(chunk.Embedding) == 0 {
				var vec []float32
				err := s.retry.Do(ctx, func(ctx context.Context) error {
					var embedErr error
					vec, embedErr = s.embedder.Embed(ctx, chunk.Text)
					return embedErr
				})
				if err != nil {
					return indexed, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
				}
				chunk.Embedding = vec
			}

			doc := chromem.Document{
				ID:        chunk.ID,
				Content:   chunk.Text,
				Embedding: chunk.Embedding,
				Metadata: map[string]string{
					"source_id": chunk.SourceID,
					"title":     chunk.Source.Title,
					"kind":      chunk.Source.Kind,
					"offset":    strconv.Itoa(chunk.Source.Offset),
				},
			}
			if err := s.col.AddDocument(ctx, doc); err != nil {
				return indexed, fmt.Errorf("index chunk %s: %w", chunk.ID, err)
			}
			indexed++
		}

		s.logger.Info("index.source.ingested", "source_id", sourceID, "chunks", len(bySource[sourceID]))
	}

	return indexed, nil
}

// Search returns up to k chunks nearest to the query vector by cosine
// similarity, ordered by descending score with ties broken by chunk id
// ascending. It fails with core.ErrIndexUnavailable before any ingestion.
func (s *Store) Search(ctx context.Context, queryVec []float32, k int) ([]core.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.col.Count()
	if count == 0 {
		return nil, core.ErrIndexUnavailable
	}
	if k <= 0 {
		return nil, nil
	}

	// Overfetch so the deterministic tie-break below decides equal-score
	// boundaries rather than the backend's internal ordering.
	n := k * 2
	if n > count {
		n = count
	}

	results, err := s.col.QueryEmbedding(ctx, queryVec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	scored := make([]core.ScoredChunk, 0, len(results))
	for _, res := range results {
		scored = append(scored, core.ScoredChunk{
			Chunk: core.DocumentChunk{
				ID:        res.ID,
				SourceID:  res.Metadata["source_id"],
				Text:      res.Content,
				Source:    metadataToSource(res.Metadata),
				Embedding: res.Embedding,
			},
			Score: float64(res.Similarity),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col.Count()
}

func metadataToSource(md map[string]string) core.SourceMetadata {
	offset, _ := strconv.Atoi(md["offset"])
	return core.SourceMetadata{Title: md["title"], Kind: md["kind"], Offset: offset}
}
