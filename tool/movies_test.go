package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/retrieve"
)

func TestMovieLookup_ReturnsGenre(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewMovieLookupTool(DefaultCatalog())))

	res, err := r.Invoke(context.Background(), "call-1", "movie_lookup", map[string]any{"title": "Inception"})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	movie, ok := res.Output.(Movie)
	require.True(t, ok)
	assert.Equal(t, "Sci-Fi", movie.Genre)
	assert.Equal(t, 2010, movie.Year)
}

func TestMovieLookup_GenreFallback(t *testing.T) {
	tool := NewMovieLookupTool(DefaultCatalog())

	out, err := tool.Call(context.Background(), map[string]any{"title": "Unknown Film", "genre": "Action"})
	require.NoError(t, err)

	movies, ok := out.([]Movie)
	require.True(t, ok)
	require.Len(t, movies, 1)
	assert.Equal(t, "The Dark Knight", movies[0].Title)
}

func TestMovieLookup_YearFilter(t *testing.T) {
	tool := NewMovieLookupTool(DefaultCatalog())

	out, err := tool.Call(context.Background(), map[string]any{"title": "Inception", "year": float64(2010)})
	require.NoError(t, err)
	movie, ok := out.(Movie)
	require.True(t, ok)
	assert.Equal(t, "Inception", movie.Title)

	// Wrong year misses the title and falls back to the year listing.
	out, err = tool.Call(context.Background(), map[string]any{"title": "Inception", "year": float64(1999)})
	require.NoError(t, err)
	movies, ok := out.([]Movie)
	require.True(t, ok)
	require.Len(t, movies, 1)
	assert.Equal(t, "The Matrix", movies[0].Title)
}

func TestMovieLookup_UnknownTitleErrors(t *testing.T) {
	tool := NewMovieLookupTool(DefaultCatalog())

	_, err := tool.Call(context.Background(), map[string]any{"title": "Unknown Film"})
	assert.Error(t, err)
}

type fixedRetriever struct {
	result retrieve.Result
	err    error
}

func (f *fixedRetriever) Retrieve(context.Context, string, int, float64) (retrieve.Result, error) {
	return f.result, f.err
}

func TestRecommendMovies_UsesEvidence(t *testing.T) {
	retriever := &fixedRetriever{result: retrieve.Result{
		{Chunk: core.DocumentChunk{ID: "plots#0000", SourceID: "plots", Text: "dream heist", Source: core.SourceMetadata{Title: "Inception"}}, Score: 0.9},
	}}
	tool := NewRecommendMoviesTool(DefaultCatalog(), retriever)

	out, err := tool.Call(context.Background(), map[string]any{"preferences": "mind-bending stories", "count": float64(2)})
	require.NoError(t, err)

	recs, ok := out.([]Recommendation)
	require.True(t, ok)
	require.NotEmpty(t, recs)
	assert.Equal(t, "Inception", recs[0].Title)
	assert.LessOrEqual(t, len(recs), 2)
}

func TestRecommendMovies_DegradesWithoutRetriever(t *testing.T) {
	tool := NewRecommendMoviesTool(DefaultCatalog(), nil)

	out, err := tool.Call(context.Background(), map[string]any{"preferences": "fast sci-fi with great action"})
	require.NoError(t, err)

	recs, ok := out.([]Recommendation)
	require.True(t, ok)
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.Reason)
	}
}

func TestRecommendMovies_RetrieverErrorDegrades(t *testing.T) {
	tool := NewRecommendMoviesTool(DefaultCatalog(), &fixedRetriever{err: core.ErrIndexUnavailable})

	out, err := tool.Call(context.Background(), map[string]any{"preferences": "sci-fi"})
	require.NoError(t, err)

	recs, ok := out.([]Recommendation)
	require.True(t, ok)
	assert.NotEmpty(t, recs)
}
