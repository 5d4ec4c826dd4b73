package testutil

import "github.com/hupe1980/cinegraph/core"

// HistoryBuilder assembles a conversation history with fluent chaining.
// Example:
//
//	turns := NewHistoryBuilder().User("hi").Agent("hello").Build()
type HistoryBuilder struct {
	turns []core.Turn
}

// NewHistoryBuilder creates an empty history builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user turn.
func (b *HistoryBuilder) User(content string) *HistoryBuilder {
	b.turns = append(b.turns, NewTurnBuilder().User(content).Build())
	return b
}

// Agent appends an agent turn.
func (b *HistoryBuilder) Agent(content string) *HistoryBuilder {
	b.turns = append(b.turns, NewTurnBuilder().Agent(content).Build())
	return b
}

// Summary appends a summary turn standing in for evicted history.
func (b *HistoryBuilder) Summary(content string) *HistoryBuilder {
	b.turns = append(b.turns, NewTurnBuilder().Agent(content).Summary().Build())
	return b
}

// Turn appends an already-built turn.
func (b *HistoryBuilder) Turn(t core.Turn) *HistoryBuilder {
	b.turns = append(b.turns, t)
	return b
}

// Build returns the assembled history.
func (b *HistoryBuilder) Build() []core.Turn {
	turns := make([]core.Turn, len(b.turns))
	copy(turns, b.turns)
	return turns
}
