package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/internal/util"
)

// FunctionTool adapts a typed Go function into a Tool. The input schema is
// derived from the function's argument struct via reflection.
type FunctionTool[T any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, input T) (any, error)
}

// NewFunctionTool wraps fn as a Tool named name. The schema for T is built
// from its json, description and enum struct tags.
func NewFunctionTool[T any](name, description string, fn func(ctx context.Context, input T) (any, error)) *FunctionTool[T] {
	var zero T
	return &FunctionTool[T]{
		name:        name,
		description: description,
		parameters:  util.CreateSchema(zero),
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool[T]) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool[T]) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool[T]) Parameters() map[string]any { return t.parameters }

// Call implements Tool by decoding args into T and delegating to the
// wrapped function.
func (t *FunctionTool[T]) Call(ctx context.Context, args map[string]any) (any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &core.ToolExecutionError{Tool: t.name, Cause: fmt.Errorf("encode arguments: %w", err)}
	}

	var input T
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, &core.InvalidToolInputError{Tool: t.name, Violations: []string{err.Error()}}
	}
	return t.fn(ctx, input)
}
