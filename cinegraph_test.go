package cinegraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cinegraph/config"
	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/graph"
	"github.com/hupe1980/cinegraph/model"
)

func demoChunks() []core.DocumentChunk {
	return []core.DocumentChunk{
		{SourceID: "plots", Text: "Inception is a science fiction heist film about shared dreaming.", Source: core.SourceMetadata{Title: "Inception", Kind: "plot"}},
		{SourceID: "plots", Text: "Interstellar follows explorers travelling through a wormhole in space.", Source: core.SourceMetadata{Title: "Interstellar", Kind: "plot"}},
	}
}

func TestCineGraph_OfflineConversation(t *testing.T) {
	cg, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	n, err := cg.Ingest(ctx, demoChunks())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reply, err := cg.HandleTurn(ctx, "s1", "hello there")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	history, err := cg.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCineGraph_ToolAssistedTurn(t *testing.T) {
	gen := model.NewMockGenerator()
	// Drive a movie_lookup call on the first planning hop; the second hop
	// has no canned decision and degrades to synthesis.
	gen.AddResponse("Hop 0. User message: What genre is Inception?",
		`{"tool":"movie_lookup","args":{"title":"Inception"}}`)

	cg, err := New(func(o *Options) { o.Generator = gen })
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cg.Ingest(ctx, demoChunks())
	require.NoError(t, err)

	reply, err := cg.HandleTurn(ctx, "s1", "What genre is Inception?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Sci-Fi")

	history, err := cg.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAgent, history[1].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "movie_lookup", history[1].ToolCalls[0].Name)
}

func TestCineGraph_RetrievalBeforeIngestApologizes(t *testing.T) {
	gen := model.NewMockGenerator()
	cg, err := New(func(o *Options) { o.Generator = gen })
	require.NoError(t, err)

	// Force a retrieval decision against the empty index.
	gen.AddResponse("Hop 0. User message: recommend space movies",
		`{"query":"space movies"}`)

	reply, err := cg.HandleTurn(context.Background(), "s1", "recommend space movies")
	require.NoError(t, err)
	assert.Equal(t, graph.Apology, reply)

	history, err := cg.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, history, "failed turn must not be committed")
}

func TestNewFromConfig_MockProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Retrieval.TopK = 2

	cg, err := NewFromConfig(cfg)
	require.NoError(t, err)

	reply, err := cg.HandleTurn(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestNewFromConfig_AppliesRetryPolicy(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.Fail(errors.New("model down"))

	cfg := config.Default()
	cfg.Graph.MaxAttempts = 1
	cfg.Graph.TimeoutSeconds = 5

	cg, err := NewFromConfig(cfg, func(o *Options) { o.Generator = gen })
	require.NoError(t, err)

	reply, err := cg.HandleTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, graph.Apology, reply)

	// One planning attempt plus one synthesis attempt. The default policy
	// retries each collaborator call once, which would show four calls.
	assert.Len(t, gen.Calls(), 2)
}

func TestNewFromConfig_UnknownProviderFails(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "llamacpp"

	_, err := NewFromConfig(cfg)
	assert.Error(t, err)
}
