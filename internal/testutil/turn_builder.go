// Package testutil contains fluent builders used across tests to construct
// conversation turns and histories without boilerplate. Not intended for
// production use.
package testutil

import (
	"time"

	"github.com/hupe1980/cinegraph/core"
)

// TurnBuilder constructs a single turn with chainable setters. Example:
//
//	turn := NewTurnBuilder().Agent("done").ToolCall("movie_lookup", `{"title":"Inception"}`).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TurnBuilder struct {
	id        string
	role      core.Role
	content   string
	timestamp time.Time
	toolCalls []core.ToolInvocation
	summary   bool
}

// NewTurnBuilder creates a builder defaulting to an empty user turn.
func NewTurnBuilder() *TurnBuilder {
	return &TurnBuilder{role: core.RoleUser, timestamp: time.Now().UTC()}
}

// ID overrides the auto-generated turn id, for tests where determinism
// matters.
func (b *TurnBuilder) ID(id string) *TurnBuilder { b.id = id; return b }

// User sets user role and content.
func (b *TurnBuilder) User(content string) *TurnBuilder {
	b.role = core.RoleUser
	b.content = content
	return b
}

// Agent sets agent role and content.
func (b *TurnBuilder) Agent(content string) *TurnBuilder {
	b.role = core.RoleAgent
	b.content = content
	return b
}

// Summary marks the turn as a summary of evicted history.
func (b *TurnBuilder) Summary() *TurnBuilder {
	b.role = core.RoleAgent
	b.summary = true
	return b
}

// At sets the turn timestamp.
func (b *TurnBuilder) At(ts time.Time) *TurnBuilder { b.timestamp = ts; return b }

// ToolCall appends a successful tool invocation to the turn.
func (b *TurnBuilder) ToolCall(name, arguments string) *TurnBuilder {
	b.toolCalls = append(b.toolCalls, core.ToolInvocation{ID: core.NewID(), Name: name, Arguments: arguments})
	return b
}

// Build returns the assembled turn.
func (b *TurnBuilder) Build() core.Turn {
	id := b.id
	if id == "" {
		id = core.NewID()
	}
	return core.Turn{
		ID:        id,
		Role:      b.role,
		Content:   b.content,
		Timestamp: b.timestamp,
		ToolCalls: b.toolCalls,
		Summary:   b.summary,
	}
}
