package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cinegraph/internal/testutil"
	"github.com/hupe1980/cinegraph/model"
	"github.com/hupe1980/cinegraph/tool"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "bare object",
			raw:  `{"tool":"movie_lookup","args":{"title":"Inception"}}`,
			want: Decision{ToolName: "movie_lookup", ToolArgs: map[string]any{"title": "Inception"}},
		},
		{
			name: "wrapped in prose",
			raw:  "Sure, next step:\n```json\n{\"query\":\"space movies\"}\n```\ndone",
			want: Decision{Query: "space movies"},
		},
		{
			name: "empty object means respond",
			raw:  `{}`,
			want: Decision{},
		},
		{
			name: "no json degrades to empty",
			raw:  "I think we should respond now.",
			want: Decision{},
		},
		{
			name: "malformed json degrades to empty",
			raw:  `{"tool": movie_lookup}`,
			want: Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDecision(tt.raw))
		})
	}
}

func TestLLMPlanner_ParsesModelDecision(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.AddResponse("Hop 0. User message: What genre is Inception?",
		`{"tool":"movie_lookup","args":{"title":"Inception"}}`)
	planner := NewLLMPlanner(gen)

	d, err := planner.Plan(context.Background(), PlanInput{UserText: "What genre is Inception?"})
	require.NoError(t, err)
	assert.Equal(t, "movie_lookup", d.ToolName)
	assert.Equal(t, "Inception", d.ToolArgs["title"])
}

func TestLLMPlanner_PromptCarriesHistory(t *testing.T) {
	gen := model.NewMockGenerator()
	planner := NewLLMPlanner(gen)

	history := testutil.NewHistoryBuilder().
		User("I love sci-fi").
		Agent("Noted, sci-fi it is.").
		Build()
	_, err := planner.Plan(context.Background(), PlanInput{UserText: "more like that", History: history})
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "I love sci-fi")
	assert.Contains(t, calls[0].Messages[0].Content, "Noted, sci-fi it is.")
}

func TestLLMPlanner_PromptCarriesToolSpecs(t *testing.T) {
	gen := model.NewMockGenerator()
	planner := NewLLMPlanner(gen)

	specs := []tool.Spec{{Name: "movie_lookup", Description: "Look up a movie."}}
	_, err := planner.Plan(context.Background(), PlanInput{UserText: "hi", Tools: specs})
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "movie_lookup")
}
