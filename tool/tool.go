// Package tool defines the side-effecting capabilities the agent may invoke
// and the registry that validates, dispatches and sandboxes their
// execution. Tool faults never crash a turn; they come back as recoverable
// errors the planner can observe.
package tool

import (
	"context"
)

// Tool is a named capability with a JSON Schema describing its input.
type Tool interface {
	// Name returns the unique tool name.
	Name() string
	// Description explains to the planner when the tool applies.
	Description() string
	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() map[string]any
	// Call executes the tool with schema-valid arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Spec is the planner-facing description of a registered tool.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result captures the outcome of a single tool invocation.
type Result struct {
	// Name is the invoked tool's name.
	Name string `json:"name"`
	// CallID correlates this invocation with the turn that carried it.
	CallID string `json:"call_id"`
	// Output is the tool's structured result, nil when Err is set.
	Output any `json:"output,omitempty"`
	// Err is the recoverable invocation error, nil on success.
	Err error `json:"-"`
}
