// Package agent exposes the conversational surface: it owns session
// histories, runs each user turn through the decision graph and commits
// the resulting turns to memory. Turns within one session are strictly
// sequential; distinct sessions proceed concurrently.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/graph"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/memory"
)

// Executor runs one user turn through the decision graph.
type Executor interface {
	Execute(ctx context.Context, sessionID string, history []core.Turn, userText string) (graph.Outcome, error)
}

// Recorder offers completed exchanges to long-term memory.
type Recorder interface {
	Record(ctx context.Context, ex memory.Exchange) (memory.Memory, bool, error)
}

// Options configure an Agent.
type Options struct {
	// Store persists session histories, defaults to in-memory.
	Store memory.Store
	// Summarizer condenses evicted turns; required when a token budget is
	// set.
	Summarizer memory.Summarizer
	// TokenBudget and RetentionFloor bound each session's history.
	TokenBudget    int
	RetentionFloor int
	// LongTerm is optional; nil disables cross-session recording.
	LongTerm Recorder
	Logger   logging.Logger
}

// Agent coordinates sessions against a single decision graph.
type Agent struct {
	executor       Executor
	store          memory.Store
	summarizer     memory.Summarizer
	tokenBudget    int
	retentionFloor int
	longTerm       Recorder
	logger         logging.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// New creates an Agent around a turn executor.
func New(executor Executor, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Store:          memory.NewInMemoryStore(),
		TokenBudget:    2048,
		RetentionFloor: 4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		executor:       executor,
		store:          opts.Store,
		summarizer:     opts.Summarizer,
		tokenBudget:    opts.TokenBudget,
		retentionFloor: opts.RetentionFloor,
		longTerm:       opts.LongTerm,
		logger:         logging.OrNoOp(opts.Logger),
	}
}

// sessionLock returns the mutex serializing turns for the session.
func (a *Agent) sessionLock(sessionID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessions == nil {
		a.sessions = make(map[string]*sync.Mutex)
	}
	if _, ok := a.sessions[sessionID]; !ok {
		a.sessions[sessionID] = &sync.Mutex{}
	}
	return a.sessions[sessionID]
}

// HandleTurn processes one user message and returns the reply. A failed
// turn returns its apology without touching the persisted history, so the
// next turn starts from the last good state.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	lock := a.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	history, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}

	outcome, err := a.executor.Execute(ctx, sessionID, history, userText)
	if err != nil {
		return "", err
	}
	if outcome.Failed {
		return outcome.Reply, nil
	}

	conv := memory.NewConversation(sessionID, func(o *memory.ConversationOptions) {
		o.TokenBudget = a.tokenBudget
		o.RetentionFloor = a.retentionFloor
		o.Logger = a.logger
	})
	conv.Replace(history)
	conv.Append(outcome.NewTurns...)

	if a.summarizer != nil {
		if err := conv.EvictIfOverBudget(ctx, a.summarizer); err != nil {
			// The reply is already produced; a failed eviction only delays
			// trimming until the next turn.
			a.logger.Warn("agent.evict.failed", "session_id", sessionID, "error", err.Error())
		}
	}

	if err := a.store.Save(ctx, sessionID, conv.Snapshot()); err != nil {
		return "", fmt.Errorf("save session %s: %w", sessionID, err)
	}

	if a.longTerm != nil {
		a.recordExchange(ctx, sessionID, userText, outcome)
	}

	return outcome.Reply, nil
}

func (a *Agent) recordExchange(ctx context.Context, sessionID, userText string, outcome graph.Outcome) {
	usedTools := false
	for _, t := range outcome.NewTurns {
		if len(t.ToolCalls) > 0 {
			usedTools = true
			break
		}
	}

	_, _, err := a.longTerm.Record(ctx, memory.Exchange{
		SessionID: sessionID,
		UserText:  userText,
		AgentText: outcome.Reply,
		UsedTools: usedTools,
		Grounded:  outcome.Grounded,
	})
	if err != nil {
		a.logger.Warn("agent.longterm.record.failed", "session_id", sessionID, "error", err.Error())
	}
}

// History returns the persisted turns for a session.
func (a *Agent) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	lock := a.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return a.store.Load(ctx, sessionID)
}
