// Package memory holds conversation state: the bounded per-session history
// with summarizing eviction, the session persistence stores, and the
// long-term memory index the agent consults across sessions.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
	"github.com/hupe1980/cinegraph/model"
)

// Summarizer condenses a span of evicted turns into a single summary text.
type Summarizer interface {
	Summarize(ctx context.Context, turns []core.Turn) (string, error)
}

// ConversationOptions configure a Conversation.
type ConversationOptions struct {
	// TokenBudget caps the approximate token size of the history. Zero or
	// negative disables eviction.
	TokenBudget int
	// RetentionFloor is the number of most recent turns always kept
	// verbatim, even when the budget is exceeded.
	RetentionFloor int
	Logger         logging.Logger
}

// Conversation is the bounded history of one session. Appends and eviction
// are serialized per conversation; distinct sessions proceed concurrently.
type Conversation struct {
	mu             sync.Mutex
	sessionID      string
	turns          []core.Turn
	tokenBudget    int
	retentionFloor int
	logger         logging.Logger
}

// NewConversation creates an empty conversation for the session.
func NewConversation(sessionID string, optFns ...func(o *ConversationOptions)) *Conversation {
	opts := ConversationOptions{TokenBudget: 2048, RetentionFloor: 4}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Conversation{
		sessionID:      sessionID,
		tokenBudget:    opts.TokenBudget,
		retentionFloor: opts.RetentionFloor,
		logger:         logging.OrNoOp(opts.Logger),
	}
}

// SessionID returns the owning session's id.
func (c *Conversation) SessionID() string { return c.sessionID }

// Append adds turns to the history in order.
func (c *Conversation) Append(turns ...core.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
}

// Snapshot returns a copy of the current history.
func (c *Conversation) Snapshot() []core.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := make([]core.Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// Replace swaps the history wholesale, used when loading a persisted
// session.
func (c *Conversation) Replace(turns []core.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = make([]core.Turn, len(turns))
	copy(c.turns, turns)
}

// Len returns the number of turns in the history.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// TokenSize returns the approximate token cost of the history.
func (c *Conversation) TokenSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tokenSize(c.turns)
}

func tokenSize(turns []core.Turn) int {
	total := 0
	for _, t := range turns {
		total += t.ApproxTokens()
	}
	return total
}

// EvictIfOverBudget collapses the oldest turns into a single summary turn
// while the history exceeds the token budget. The budget is re-checked
// after each summary is inserted, since the summary itself costs tokens; a
// pass that fails to shrink the history stops the loop. The retention
// floor wins over the budget: the newest RetentionFloor turns are never
// summarized, so a floor of long turns can legitimately leave the history
// above budget.
func (c *Conversation) EvictIfOverBudget(ctx context.Context, summarizer Summarizer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokenBudget <= 0 {
		return nil
	}

	for tokenSize(c.turns) > c.tokenBudget && len(c.turns) > c.retentionFloor {
		before := tokenSize(c.turns)

		// Evict oldest-first until the kept turns fit, keeping the floor.
		cut := 0
		for cut < len(c.turns)-c.retentionFloor && tokenSize(c.turns[cut:]) > c.tokenBudget {
			cut++
		}
		if cut == 0 {
			return nil
		}

		evicted := c.turns[:cut]
		summary, err := summarizer.Summarize(ctx, evicted)
		if err != nil {
			return fmt.Errorf("summarize %d evicted turns: %w", cut, err)
		}

		kept := c.turns[cut:]
		c.turns = append([]core.Turn{core.NewSummaryTurn(summary)}, kept...)
		c.logger.Info("memory.evicted", "session_id", c.sessionID, "evicted_turns", cut, "tokens", tokenSize(c.turns))

		if tokenSize(c.turns) >= before {
			return nil
		}
	}
	return nil
}

// GeneratorSummarizer summarizes evicted turns with a language model.
type GeneratorSummarizer struct {
	generator model.Generator
	retry     core.RetryPolicy
}

// NewGeneratorSummarizer wraps a generator as a Summarizer.
func NewGeneratorSummarizer(generator model.Generator, optFns ...func(p *core.RetryPolicy)) *GeneratorSummarizer {
	retry := core.DefaultRetryPolicy()
	for _, fn := range optFns {
		fn(&retry)
	}
	return &GeneratorSummarizer{generator: generator, retry: retry}
}

// Summarize implements Summarizer. The prompt asks for facts and stated
// preferences only, so the summary stays useful as grounding context.
func (s *GeneratorSummarizer) Summarize(ctx context.Context, turns []core.Turn) (string, error) {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(string(t.Role))
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}

	req := model.Request{
		Instructions: "Summarize this conversation fragment in at most three sentences. Keep concrete facts, movie titles and the user's stated preferences. Do not invent details.",
		Messages:     []model.Message{{Role: "user", Content: sb.String()}},
	}

	var summary string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		summary, genErr = s.generator.Generate(ctx, req)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}
