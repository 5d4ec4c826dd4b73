// Package cinegraph is a conversational movie-recommendation agent: a
// planning graph routes each user turn through tool calls and similarity
// retrieval over an embedded vector index, then synthesizes a grounded
// reply and commits the exchange to bounded conversation memory.
//
// The root package wires the subsystems together behind one façade; each
// subsystem stays independently usable through its own package.
package cinegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/cinegraph/agent"
	"github.com/hupe1980/cinegraph/config"
	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/graph"
	"github.com/hupe1980/cinegraph/index"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/memory"
	"github.com/hupe1980/cinegraph/model"
	modelanthropic "github.com/hupe1980/cinegraph/model/anthropic"
	modelopenai "github.com/hupe1980/cinegraph/model/openai"
	"github.com/hupe1980/cinegraph/retrieve"
	"github.com/hupe1980/cinegraph/tool"
)

// Options configure the assembled agent.
type Options struct {
	// Generator produces planner, synthesis and summary completions.
	// Defaults to the deterministic mock for offline use.
	Generator model.Generator
	// Embedder vectorizes chunks, queries and memories. Defaults to the
	// deterministic mock.
	Embedder model.Embedder
	// IndexPath persists the document index on disk when non-empty.
	IndexPath string
	// SessionDir persists session histories as JSON files when non-empty.
	SessionDir string
	// LongTerm enables cross-session memory.
	LongTerm bool
	// Catalog backs the built-in movie tools, defaults to the demo catalog.
	Catalog *tool.Catalog

	TopK           int
	MinScore       float64
	MaxHops        int
	TokenBudget    int
	RetentionFloor int
	Instructions   string
	Retry          core.RetryPolicy
	Logger         logging.Logger
}

// CineGraph is the assembled agent.
type CineGraph struct {
	agent    *agent.Agent
	store    *index.Store
	registry *tool.Registry
	longTerm *memory.LongTermMemory
	logger   logging.Logger
}

// New assembles an agent. Without options it runs fully offline on the
// deterministic mock models, which is the intended setup for tests and
// local development.
func New(optFns ...func(o *Options)) (*CineGraph, error) {
	opts := Options{
		Catalog:        tool.DefaultCatalog(),
		TopK:           4,
		MinScore:       0.2,
		MaxHops:        5,
		TokenBudget:    2048,
		RetentionFloor: 4,
		Instructions:   "",
		Retry:          core.DefaultRetryPolicy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	generator := opts.Generator
	if generator == nil {
		generator = model.NewMockGenerator()
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = model.NewMockEmbedder()
	}

	store, err := index.NewStore(embedder, func(o *index.Options) {
		o.Path = opts.IndexPath
		o.Retry = opts.Retry
		o.Logger = logger
	})
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	retriever := retrieve.New(store, embedder, func(o *retrieve.Options) {
		o.Retry = opts.Retry
		o.Logger = logger
	})

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Retry = opts.Retry
		o.Logger = logger
	})
	if err := registry.Register(tool.NewMovieLookupTool(opts.Catalog)); err != nil {
		return nil, err
	}
	if err := registry.Register(tool.NewRecommendMoviesTool(opts.Catalog, retriever)); err != nil {
		return nil, err
	}

	var longTerm *memory.LongTermMemory
	if opts.LongTerm {
		longTerm, err = memory.NewLongTermMemory(embedder, func(o *memory.LongTermOptions) {
			o.Retry = opts.Retry
			o.Logger = logger
		})
		if err != nil {
			return nil, fmt.Errorf("build long-term memory: %w", err)
		}
	}

	g := graph.New(generator, func(o *graph.Options) {
		o.Planner = graph.NewLLMPlanner(generator, func(p *core.RetryPolicy) { *p = opts.Retry })
		o.Retriever = retriever
		o.Tools = registry
		if longTerm != nil {
			o.LongTerm = longTerm
		}
		o.TopK = opts.TopK
		o.MinScore = opts.MinScore
		o.MaxHops = opts.MaxHops
		if opts.Instructions != "" {
			o.Instructions = opts.Instructions
		}
		o.Retry = opts.Retry
		o.Logger = logger
	})

	var sessionStore memory.Store = memory.NewInMemoryStore()
	if opts.SessionDir != "" {
		sessionStore, err = memory.NewFileStore(opts.SessionDir)
		if err != nil {
			return nil, fmt.Errorf("build session store: %w", err)
		}
	}

	a := agent.New(g, func(o *agent.Options) {
		o.Store = sessionStore
		o.Summarizer = memory.NewGeneratorSummarizer(generator, func(p *core.RetryPolicy) { *p = opts.Retry })
		o.TokenBudget = opts.TokenBudget
		o.RetentionFloor = opts.RetentionFloor
		if longTerm != nil {
			o.LongTerm = longTerm
		}
		o.Logger = logger
	})

	return &CineGraph{agent: a, store: store, registry: registry, longTerm: longTerm, logger: logger}, nil
}

// NewFromConfig assembles an agent from a loaded configuration, selecting
// the model provider it names.
func NewFromConfig(cfg config.Config, optFns ...func(o *Options)) (*CineGraph, error) {
	var generator model.Generator
	var embedder model.Embedder

	switch cfg.Model.Provider {
	case "openai":
		client := modelopenai.New(func(o *modelopenai.Options) {
			if cfg.Model.ChatModel != "" {
				o.ChatModel = cfg.Model.ChatModel
			}
			if cfg.Model.EmbedModel != "" {
				o.EmbedModel = cfg.Model.EmbedModel
			}
		})
		generator, embedder = client, client
	case "anthropic":
		// Anthropic has no embeddings endpoint; pair its generator with the
		// deterministic embedder unless the caller overrides it.
		generator = modelanthropic.New()
		embedder = model.NewMockEmbedder()
	case "", "mock":
		generator = model.NewMockGenerator()
		embedder = model.NewMockEmbedder()
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	base := func(o *Options) {
		o.Generator = generator
		o.Embedder = embedder
		o.IndexPath = cfg.Index.Path
		o.SessionDir = cfg.Memory.SessionDir
		if cfg.Graph.MaxAttempts > 0 {
			o.Retry.MaxAttempts = cfg.Graph.MaxAttempts
		}
		if cfg.Graph.TimeoutSeconds > 0 {
			o.Retry.Timeout = time.Duration(cfg.Graph.TimeoutSeconds * float64(time.Second))
		}
		if cfg.Retrieval.TopK > 0 {
			o.TopK = cfg.Retrieval.TopK
		}
		if cfg.Retrieval.MinScore > 0 {
			o.MinScore = cfg.Retrieval.MinScore
		}
		if cfg.Graph.MaxHops > 0 {
			o.MaxHops = cfg.Graph.MaxHops
		}
		if cfg.Memory.TokenBudget > 0 {
			o.TokenBudget = cfg.Memory.TokenBudget
		}
		if cfg.Memory.RetentionFloor > 0 {
			o.RetentionFloor = cfg.Memory.RetentionFloor
		}
	}

	return New(append([]func(o *Options){base}, optFns...)...)
}

// HandleTurn processes one user message in the session and returns the
// agent's reply.
func (c *CineGraph) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	return c.agent.HandleTurn(ctx, sessionID, userText)
}

// Ingest indexes document chunks for retrieval.
func (c *CineGraph) Ingest(ctx context.Context, chunks []core.DocumentChunk) (int, error) {
	return c.store.Ingest(ctx, chunks)
}

// RegisterTool adds a custom tool to the agent's registry.
func (c *CineGraph) RegisterTool(t tool.Tool) error {
	return c.registry.Register(t)
}

// History returns the persisted conversation for a session.
func (c *CineGraph) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	return c.agent.History(ctx, sessionID)
}
