package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/model"
	"github.com/hupe1980/cinegraph/tool"
)

// Decision is the planner's verdict for one hop. ToolName and Query are
// independent: both set means the tool call and the retrieval run
// concurrently, neither set means the graph proceeds straight to
// synthesis.
type Decision struct {
	// ToolName names a registered tool to invoke, empty for none.
	ToolName string `json:"tool,omitempty"`
	// ToolArgs are the arguments for ToolName.
	ToolArgs map[string]any `json:"args,omitempty"`
	// Query is a retrieval query, empty for none.
	Query string `json:"query,omitempty"`
}

func (d Decision) empty() bool { return d.ToolName == "" && d.Query == "" }

// PlanInput is everything the planner may consider for a hop.
type PlanInput struct {
	History      []core.Turn
	UserText     string
	Tools        []tool.Spec
	Observations []core.ToolInvocation
	Hop          int
}

// Planner decides the next action for a hop.
type Planner interface {
	Plan(ctx context.Context, in PlanInput) (Decision, error)
}

// LLMPlanner asks a language model to pick the next action and parses its
// reply as a strict JSON decision. Anything unparseable degrades to the
// empty decision, which sends the graph to synthesis rather than failing
// the turn.
type LLMPlanner struct {
	generator model.Generator
	retry     core.RetryPolicy
}

// NewLLMPlanner wraps a generator as a Planner.
func NewLLMPlanner(generator model.Generator, optFns ...func(p *core.RetryPolicy)) *LLMPlanner {
	retry := core.DefaultRetryPolicy()
	for _, fn := range optFns {
		fn(&retry)
	}
	return &LLMPlanner{generator: generator, retry: retry}
}

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, in PlanInput) (Decision, error) {
	prompt, err := buildPlanPrompt(in)
	if err != nil {
		return Decision{}, err
	}

	var raw string
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		raw, genErr = p.generator.Generate(ctx, model.Request{
			Instructions: planInstructions,
			Messages:     []model.Message{{Role: "user", Content: prompt}},
		})
		return genErr
	})
	if err != nil {
		return Decision{}, err
	}

	return parseDecision(raw), nil
}

const planInstructions = `You are the planning step of a movie-recommendation assistant.
Decide the next action and answer with a single JSON object, nothing else:
{"tool": "<tool name or omit>", "args": {...}, "query": "<retrieval query or omit>"}
Use a tool for factual lookups, a query to fetch plot evidence, both when useful.
Answer {} when enough information has been gathered to respond.`

func buildPlanPrompt(in PlanInput) (string, error) {
	var sb strings.Builder

	if len(in.Tools) > 0 {
		specs, err := json.Marshal(in.Tools)
		if err != nil {
			return "", fmt.Errorf("encode tool specs: %w", err)
		}
		sb.WriteString("Available tools:\n")
		sb.Write(specs)
		sb.WriteString("\n\n")
	}

	if len(in.History) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, t := range in.History {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
		sb.WriteString("\n")
	}

	if len(in.Observations) > 0 {
		obs, err := json.Marshal(in.Observations)
		if err != nil {
			return "", fmt.Errorf("encode observations: %w", err)
		}
		sb.WriteString("Observations from this turn:\n")
		sb.Write(obs)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Hop %d. User message: %s", in.Hop, in.UserText)
	return sb.String(), nil
}

// parseDecision extracts the first JSON object from the model's reply.
// Models wrap JSON in prose often enough that scanning for braces is more
// robust than demanding a bare object.
func parseDecision(raw string) Decision {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Decision{}
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return Decision{}
	}
	return d
}
