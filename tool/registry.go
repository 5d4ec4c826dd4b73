package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/logging"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Retry bounds each tool call; the per-attempt timeout is the tool
	// execution deadline.
	Retry  core.RetryPolicy
	Logger logging.Logger
}

// Registry holds the tools available to the agent. Registration is
// typically done once at startup; invocation is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	retry  core.RetryPolicy
	logger logging.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Retry: core.DefaultRetryPolicy()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:  make(map[string]Tool),
		retry:  opts.Retry,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Name() == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %s already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Specs returns the registered tool specs sorted by name, for inclusion in
// planner prompts.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, Spec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Invoke validates args against the tool's schema and executes it under the
// registry's retry policy. Unknown tools, schema violations, tool errors
// and panics all come back in Result.Err as recoverable errors; the error
// return is reserved for context cancellation.
func (r *Registry) Invoke(ctx context.Context, callID, name string, args map[string]any) (Result, error) {
	res := Result{Name: name, CallID: callID}

	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		res.Err = &core.ToolExecutionError{Tool: name, Cause: fmt.Errorf("unknown tool")}
		return res, nil
	}

	if err := validateArgs(t, args); err != nil {
		r.logger.Warn("tool.input.invalid", "tool", name, "code", core.ErrorCode(err), "error", err.Error())
		res.Err = err
		return res, nil
	}

	var output any
	err := r.retry.Do(ctx, func(ctx context.Context) (callErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				callErr = &core.ToolExecutionError{Tool: name, Cause: fmt.Errorf("panic: %v", rec)}
			}
		}()
		output, callErr = t.Call(ctx, args)
		return callErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var execErr *core.ToolExecutionError
		var inputErr *core.InvalidToolInputError
		if !errors.As(err, &execErr) && !errors.As(err, &inputErr) {
			err = &core.ToolExecutionError{Tool: name, Cause: err}
		}
		r.logger.Warn("tool.call.failed", "tool", name, "code", core.ErrorCode(err), "error", err.Error())
		res.Err = err
		return res, nil
	}

	res.Output = output
	r.logger.Debug("tool.call.ok", "tool", name, "call_id", callID)
	return res, nil
}

func validateArgs(t Tool, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(t.Parameters()),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return &core.ToolExecutionError{Tool: t.Name(), Cause: fmt.Errorf("schema validation: %w", err)}
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return &core.InvalidToolInputError{Tool: t.Name(), Violations: violations}
	}
	return nil
}
