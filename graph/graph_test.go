package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/model"
	"github.com/hupe1980/cinegraph/retrieve"
	"github.com/hupe1980/cinegraph/tool"
)

type scriptedPlanner struct {
	decisions []Decision
	calls     int
	err       error
}

func (p *scriptedPlanner) Plan(_ context.Context, _ PlanInput) (Decision, error) {
	if p.err != nil {
		return Decision{}, p.err
	}
	if p.calls >= len(p.decisions) {
		return Decision{}, nil
	}
	d := p.decisions[p.calls]
	p.calls++
	return d, nil
}

type stubRetriever struct {
	result retrieve.Result
	err    error
	calls  int
}

func (r *stubRetriever) Retrieve(context.Context, string, int, float64) (retrieve.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func movieRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.NewMovieLookupTool(tool.DefaultCatalog())))
	return registry
}

func TestGraph_ToolLookupTurn(t *testing.T) {
	planner := &scriptedPlanner{decisions: []Decision{
		{ToolName: "movie_lookup", ToolArgs: map[string]any{"title": "Inception"}},
	}}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
		o.Tools = movieRegistry(t)
	})

	out, err := g.Execute(context.Background(), "s1", nil, "What genre is Inception?")
	require.NoError(t, err)
	require.False(t, out.Failed)

	// One user turn and one agent turn; the tool invocation rides on the
	// agent turn instead of appearing as a third history entry.
	require.Len(t, out.NewTurns, 2)
	assert.Equal(t, core.RoleUser, out.NewTurns[0].Role)
	assert.Equal(t, core.RoleAgent, out.NewTurns[1].Role)
	require.Len(t, out.NewTurns[1].ToolCalls, 1)
	assert.Equal(t, "movie_lookup", out.NewTurns[1].ToolCalls[0].Name)
	assert.Empty(t, out.NewTurns[1].ToolCalls[0].Error)

	assert.Contains(t, out.Reply, "Sci-Fi")
	assert.Equal(t, []State{StateStart, StatePlan, StateToolCall, StatePlan, StateSynthesize, StateRespond}, out.Trace)
}

func TestGraph_HopGuardForcesSynthesis(t *testing.T) {
	// A planner that always wants another tool call must still terminate.
	planner := &scriptedPlanner{}
	for i := 0; i < 20; i++ {
		planner.decisions = append(planner.decisions, Decision{
			ToolName: "movie_lookup",
			ToolArgs: map[string]any{"title": "Inception"},
		})
	}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
		o.Tools = movieRegistry(t)
		o.MaxHops = 3
	})

	out, err := g.Execute(context.Background(), "s1", nil, "keep looking things up")
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.Equal(t, 3, planner.calls)
	assert.Equal(t, StateRespond, out.Trace[len(out.Trace)-1])
}

func TestGraph_EmptyRetrievalStillResponds(t *testing.T) {
	planner := &scriptedPlanner{decisions: []Decision{{Query: "obscure finnish silent films"}}}
	retriever := &stubRetriever{}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
		o.Retriever = retriever
	})

	out, err := g.Execute(context.Background(), "s1", nil, "any obscure recommendations?")
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.False(t, out.Grounded)
	assert.Equal(t, 1, retriever.calls)
	assert.NotEmpty(t, out.Reply)
	assert.Equal(t, []State{StateStart, StatePlan, StateRetrieve, StateSynthesize, StateRespond}, out.Trace)
}

func TestGraph_IndexUnavailableFailsTurn(t *testing.T) {
	planner := &scriptedPlanner{decisions: []Decision{{Query: "space movies"}}}
	retriever := &stubRetriever{err: core.ErrIndexUnavailable}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
		o.Retriever = retriever
	})

	out, err := g.Execute(context.Background(), "s1", nil, "recommend something")
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, Apology, out.Reply)
	assert.Nil(t, out.NewTurns)
	assert.Equal(t, StateFail, out.Trace[len(out.Trace)-1])
}

func TestGraph_ConcurrentToolAndRetrieve(t *testing.T) {
	planner := &scriptedPlanner{decisions: []Decision{{
		ToolName: "movie_lookup",
		ToolArgs: map[string]any{"title": "Interstellar"},
		Query:    "space exploration",
	}}}
	retriever := &stubRetriever{result: retrieve.Result{
		{Chunk: core.DocumentChunk{ID: "plots#0001", SourceID: "plots", Text: "Interstellar plot."}, Score: 0.8},
	}}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
		o.Retriever = retriever
		o.Tools = movieRegistry(t)
	})

	out, err := g.Execute(context.Background(), "s1", nil, "tell me about space movies")
	require.NoError(t, err)
	require.False(t, out.Failed)
	assert.True(t, out.Grounded)
	assert.Equal(t, []string{"plots:0"}, out.Sources)
	assert.Equal(t, []State{StateStart, StatePlan, StateToolCall, StateRetrieve, StateSynthesize, StateRespond}, out.Trace)
	require.Len(t, out.NewTurns, 2)
	assert.Len(t, out.NewTurns[1].ToolCalls, 1)
}

func TestGraph_PlannerErrorDegradesToSynthesis(t *testing.T) {
	planner := &scriptedPlanner{err: errors.New("planner model down")}
	g := New(model.NewMockGenerator(), func(o *Options) {
		o.Planner = planner
	})

	out, err := g.Execute(context.Background(), "s1", nil, "hello")
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.NotEmpty(t, out.Reply)
	assert.Equal(t, []State{StateStart, StatePlan, StateSynthesize, StateRespond}, out.Trace)
}

func TestGraph_SynthesisFailureApologizes(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.Fail(errors.New("model down"))
	g := New(gen, func(o *Options) {
		o.Retry = core.RetryPolicy{MaxAttempts: 1}
	})

	out, err := g.Execute(context.Background(), "s1", nil, "hello")
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, Apology, out.Reply)
	assert.Nil(t, out.NewTurns)
}

func TestGraph_ContextCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	g := New(model.NewMockGenerator())
	_, err := g.Execute(ctx, "s1", nil, "hello")
	assert.Error(t, err)
}
