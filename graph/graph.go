package graph

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sourcegraph/conc"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/memory"
	"github.com/hupe1980/cinegraph/model"
	"github.com/hupe1980/cinegraph/retrieve"
	"github.com/hupe1980/cinegraph/tool"
)

// Apology is the reply of a turn that ends in StateFail.
const Apology = "I'm sorry, I ran into a problem and can't answer that right now. Please try again in a moment."

// Retriever fetches ranked evidence for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float64) (retrieve.Result, error)
}

// ToolInvoker dispatches validated tool calls.
type ToolInvoker interface {
	Invoke(ctx context.Context, callID, name string, args map[string]any) (tool.Result, error)
	Specs() []tool.Spec
}

// MemoryRecaller searches long-term memory.
type MemoryRecaller interface {
	Search(ctx context.Context, query string, k int) ([]memory.Memory, error)
}

// Options configure a Graph.
type Options struct {
	// MaxHops caps planner-driven action rounds per turn; reaching it
	// forces synthesis with whatever has been gathered.
	MaxHops int
	// TopK is the evidence count requested per retrieval.
	TopK int
	// MinScore is the similarity threshold below which evidence is dropped.
	MinScore float64
	// Instructions is the synthesis persona prompt.
	Instructions string
	Planner      Planner
	Retriever    Retriever
	Tools        ToolInvoker
	// LongTerm is optional; nil disables cross-session recall.
	LongTerm MemoryRecaller
	Retry    core.RetryPolicy
	Logger   logging.Logger
}

// Graph executes the per-turn decision loop.
type Graph struct {
	generator    model.Generator
	planner      Planner
	retriever    Retriever
	tools        ToolInvoker
	longTerm     MemoryRecaller
	maxHops      int
	topK         int
	minScore     float64
	instructions string
	retry        core.RetryPolicy
	logger       logging.Logger
}

// New creates a Graph around a generator. A nil planner sends every turn
// straight to synthesis, which degrades the agent to plain chat.
func New(generator model.Generator, optFns ...func(o *Options)) *Graph {
	opts := Options{
		MaxHops:      5,
		TopK:         4,
		MinScore:     0.2,
		Instructions: defaultInstructions,
		Retry:        core.DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Graph{
		generator:    generator,
		planner:      opts.Planner,
		retriever:    opts.Retriever,
		tools:        opts.Tools,
		longTerm:     opts.LongTerm,
		maxHops:      opts.MaxHops,
		topK:         opts.TopK,
		minScore:     opts.MinScore,
		instructions: opts.Instructions,
		retry:        opts.Retry,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Execute runs one user turn through the graph. The returned error is
// non-nil only for context cancellation; every other failure mode becomes
// an Outcome, failed or otherwise.
func (g *Graph) Execute(ctx context.Context, sessionID string, history []core.Turn, userText string) (Outcome, error) {
	gs := &GraphState{SessionID: sessionID, History: history, UserText: userText}

	state := StateStart
	var pending Decision
	var reply string
	var failCause error

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		gs.visit(state)

		switch state {
		case StateStart:
			if g.longTerm != nil {
				memories, err := g.longTerm.Search(ctx, userText, 3)
				if err != nil {
					if ctx.Err() != nil {
						return Outcome{}, ctx.Err()
					}
					g.logger.Warn("graph.memory.recall.failed", "session_id", sessionID, "error", err.Error())
				} else {
					gs.Memories = memories
				}
			}
			state = StatePlan

		case StatePlan:
			if g.planner == nil {
				state = StateSynthesize
				break
			}
			if gs.Hops >= g.maxHops {
				g.logger.Warn("graph.hops.exhausted", "session_id", sessionID, "hops", gs.Hops)
				state = StateSynthesize
				break
			}

			decision, err := g.planner.Plan(ctx, PlanInput{
				History:      gs.History,
				UserText:     userText,
				Tools:        g.toolSpecs(),
				Observations: gs.ToolResults,
				Hop:          gs.Hops,
			})
			if err != nil {
				if ctx.Err() != nil {
					return Outcome{}, ctx.Err()
				}
				g.logger.Warn("graph.plan.failed", "session_id", sessionID, "error", err.Error())
				state = StateSynthesize
				break
			}

			if decision.empty() {
				state = StateSynthesize
				break
			}
			pending = decision
			gs.Hops++
			if decision.ToolName != "" {
				state = StateToolCall
			} else {
				state = StateRetrieve
			}

		case StateToolCall:
			decision := pending
			pending = Decision{}

			var inv core.ToolInvocation
			var evidence retrieve.Result
			var retrieveErr error

			var wg conc.WaitGroup
			wg.Go(func() {
				inv = g.invokeTool(ctx, decision)
			})
			if decision.Query != "" {
				gs.visit(StateRetrieve)
				wg.Go(func() {
					evidence, retrieveErr = g.runRetrieve(ctx, decision.Query)
				})
			}
			wg.Wait()

			gs.ToolResults = append(gs.ToolResults, inv)
			if decision.Query == "" {
				state = StatePlan
				break
			}
			if retrieveErr != nil {
				failCause = retrieveErr
				state = StateFail
				break
			}
			// Both actions joined; retrieval always advances to synthesis.
			gs.Evidence = retrieve.Fuse(g.topK, gs.Evidence, evidence)
			state = StateSynthesize

		case StateRetrieve:
			decision := pending
			pending = Decision{}

			evidence, err := g.runRetrieve(ctx, decision.Query)
			if err != nil {
				failCause = err
				state = StateFail
				break
			}
			gs.Evidence = retrieve.Fuse(g.topK, gs.Evidence, evidence)
			state = StateSynthesize

		case StateSynthesize:
			var err error
			reply, err = g.synthesize(ctx, gs)
			if err != nil {
				if ctx.Err() != nil {
					return Outcome{}, ctx.Err()
				}
				failCause = err
				state = StateFail
				break
			}
			state = StateRespond

		case StateRespond:
			g.logger.Info("graph.turn.done",
				"session_id", sessionID,
				"hops", gs.Hops,
				"tool_calls", len(gs.ToolResults),
				"evidence", len(gs.Evidence),
			)
			return Outcome{
				Reply: reply,
				NewTurns: []core.Turn{
					core.NewUserTurn(userText),
					core.NewAgentTurn(reply, gs.ToolResults...),
				},
				Grounded: len(gs.Evidence) > 0,
				Sources:  gs.Evidence.Sources(),
				Trace:    gs.Trace,
			}, nil

		case StateFail:
			cause := "unknown"
			if failCause != nil {
				cause = failCause.Error()
			}
			g.logger.Error("graph.turn.failed",
				"session_id", sessionID,
				"cause", cause,
				"hops", gs.Hops,
				"trace", traceStrings(gs.Trace),
			)
			return Outcome{Reply: Apology, Failed: true, Trace: gs.Trace}, nil
		}
	}
}

func (g *Graph) toolSpecs() []tool.Spec {
	if g.tools == nil {
		return nil
	}
	return g.tools.Specs()
}

// invokeTool runs one planned tool call. Every failure lands in the
// invocation's Error field; the planner observes it on the next hop.
func (g *Graph) invokeTool(ctx context.Context, decision Decision) core.ToolInvocation {
	inv := core.ToolInvocation{ID: core.NewID(), Name: decision.ToolName}
	if len(decision.ToolArgs) > 0 {
		if args, err := json.Marshal(decision.ToolArgs); err == nil {
			inv.Arguments = string(args)
		}
	}

	if g.tools == nil {
		inv.Error = "no tools registered"
		return inv
	}

	res, err := g.tools.Invoke(ctx, inv.ID, decision.ToolName, decision.ToolArgs)
	if err != nil {
		inv.Error = err.Error()
		return inv
	}
	if res.Err != nil {
		inv.Error = res.Err.Error()
		return inv
	}
	inv.Result = res.Output
	return inv
}

// runRetrieve fetches evidence for the query. Recoverable faults shrink to
// an empty result; only non-recoverable errors (an unavailable index,
// cancellation) propagate and fail the turn.
func (g *Graph) runRetrieve(ctx context.Context, query string) (retrieve.Result, error) {
	if g.retriever == nil {
		return nil, nil
	}

	evidence, err := g.retriever.Retrieve(ctx, query, g.topK, g.minScore)
	if err != nil {
		if errors.Is(err, core.ErrIndexUnavailable) || !core.IsRecoverable(err) {
			return nil, err
		}
		g.logger.Warn("graph.retrieve.failed", "query", query, "error", err.Error())
		return nil, nil
	}
	return evidence, nil
}

func traceStrings(trace []State) []string {
	out := make([]string, len(trace))
	for i, s := range trace {
		out[i] = s.String()
	}
	return out
}
