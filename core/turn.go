package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the human user.
	RoleUser Role = "user"
	// RoleAgent marks a turn authored by the assistant.
	RoleAgent Role = "agent"
	// RoleTool marks a turn carrying a raw tool observation.
	RoleTool Role = "tool"
)

// ToolInvocation records one tool call made while producing a turn: the
// validated arguments that went in and the structured output (or error
// string) that came back.
type ToolInvocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON-encoded argument payload
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Turn is one entry of a conversation. Turns are immutable once appended:
// helpers construct them fully populated and callers treat them as values.
//
// Summary is set on the compact turn that replaces an evicted range of
// older turns, so eviction always leaves a trace in the history.
type Turn struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
	Summary   bool             `json:"summary,omitempty"`
}

// NewID generates a unique identifier for turns and tool invocations.
func NewID() string { return uuid.NewString() }

// NewUserTurn constructs a user-authored text turn.
func NewUserTurn(content string) Turn {
	return Turn{ID: NewID(), Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAgentTurn constructs an assistant turn. Any tool invocations that
// contributed to the reply ride along on the turn rather than appearing as
// separate history entries.
func NewAgentTurn(content string, calls ...ToolInvocation) Turn {
	return Turn{ID: NewID(), Role: RoleAgent, Content: content, Timestamp: time.Now().UTC(), ToolCalls: calls}
}

// NewToolTurn constructs a turn carrying a single raw tool observation.
func NewToolTurn(inv ToolInvocation) Turn {
	return Turn{ID: NewID(), Role: RoleTool, Content: inv.Name, Timestamp: time.Now().UTC(), ToolCalls: []ToolInvocation{inv}}
}

// NewSummaryTurn constructs the agent-authored turn that stands in for an
// evicted range of older turns.
func NewSummaryTurn(content string) Turn {
	return Turn{ID: NewID(), Role: RoleAgent, Content: content, Timestamp: time.Now().UTC(), Summary: true}
}

// ApproxTokens estimates the token cost of a turn for budget accounting.
// The 4-bytes-per-token heuristic is deliberately rough; the memory budget
// only needs a stable, monotonic measure.
func (t Turn) ApproxTokens() int {
	n := len(t.Content)/4 + 4
	for _, c := range t.ToolCalls {
		n += (len(c.Arguments) + len(c.Error)) / 4
	}
	return n
}
