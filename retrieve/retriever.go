// Package retrieve turns a natural-language query into a ranked,
// deduplicated, threshold-filtered list of evidence chunks for the agent
// graph to consume. An empty result is a valid, common outcome: callers
// must treat "no evidence" as information, never as a failure.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/model"
)

// Searcher is the slice of the index.Store contract the retriever needs.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, k int) ([]core.ScoredChunk, error)
}

// Evidence is one retrieved chunk with its similarity score.
type Evidence struct {
	Chunk core.DocumentChunk
	Score float64
}

// Result is an ordered evidence list: scores non-increasing, chunk ids
// unique, every score at or above the configured threshold.
type Result []Evidence

// Sources lists "title:offset" provenance strings in rank order.
func (r Result) Sources() []string {
	sources := make([]string, 0, len(r))
	for _, ev := range r {
		title := ev.Chunk.Source.Title
		if title == "" {
			title = ev.Chunk.SourceID
		}
		sources = append(sources, fmt.Sprintf("%s:%d", title, ev.Chunk.Source.Offset))
	}
	return sources
}

// ContextText renders the evidence as numbered blocks ready for inclusion
// in a synthesis prompt.
func (r Result) ContextText() string {
	var sb strings.Builder
	for i, ev := range r {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] SOURCE=%s | CHUNK=%s\n%s", i+1, ev.Chunk.SourceID, ev.Chunk.ID, ev.Chunk.Text)
	}
	return sb.String()
}

// Options configure a Retriever.
type Options struct {
	// Retry bounds the query-embedding call.
	Retry  core.RetryPolicy
	Logger logging.Logger
}

// Retriever wraps the index: embed query, search, threshold, dedupe,
// truncate. Deterministic given identical inputs and store state.
type Retriever struct {
	searcher Searcher
	embedder model.Embedder
	retry    core.RetryPolicy
	logger   logging.Logger
}

// New constructs a Retriever over a searcher and embedder.
func New(searcher Searcher, embedder model.Embedder, optFns ...func(o *Options)) *Retriever {
	opts := Options{Retry: core.DefaultRetryPolicy()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Retriever{
		searcher: searcher,
		embedder: embedder,
		retry:    opts.Retry,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Retrieve returns up to k evidence chunks scoring at least minScore for
// the query. Embedding failures and timeouts are recoverable: they yield
// an empty result, logged but not surfaced as an error. A search against
// an empty index fails with core.ErrIndexUnavailable, which is fatal for
// the turn and passed through.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore float64) (Result, error) {
	if k <= 0 {
		return Result{}, nil
	}

	var queryVec []float32
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		queryVec, embedErr = r.embedder.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("retrieve.embed.failed", "query", query, "error", err.Error())
		return Result{}, nil
	}

	// Overfetch: dedupe below may drop entries.
	scored, err := r.searcher.Search(ctx, queryVec, k*2)
	if err != nil {
		return nil, err
	}

	candidates := make(Result, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < minScore {
			continue
		}
		candidates = append(candidates, Evidence{Chunk: sc.Chunk, Score: sc.Score})
	}

	result := Fuse(k, candidates)
	r.logger.Debug("retrieve.done", "query", query, "hits", len(result))
	return result, nil
}

// Fuse merges evidence lists into a single ranked result: duplicates by
// chunk id keep their highest score, ordering is score descending with
// chunk id ascending on ties, and the result is truncated to k.
func Fuse(k int, lists ...Result) Result {
	best := make(map[string]Evidence)
	for _, list := range lists {
		for _, ev := range list {
			if cur, ok := best[ev.Chunk.ID]; !ok || ev.Score > cur.Score {
				best[ev.Chunk.ID] = ev
			}
		}
	}

	merged := make(Result, 0, len(best))
	for _, ev := range best {
		merged = append(merged, ev)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Chunk.ID < merged[j].Chunk.ID
	})

	if k >= 0 && len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
