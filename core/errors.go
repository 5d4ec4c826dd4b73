package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrIndexUnavailable is returned when similarity search is attempted
// before any document has been ingested. It is fatal for the current turn
// only: the graph converts it into a user-visible apology without
// persisting a memory update.
var ErrIndexUnavailable = errors.New("document index unavailable: no chunks ingested")

// InvalidToolInputError reports that tool arguments failed schema
// validation. It is recoverable: the graph receives it as an observation
// and may re-plan with corrected input.
type InvalidToolInputError struct {
	Tool       string
	Violations []string
}

func (e *InvalidToolInputError) Error() string {
	return fmt.Sprintf("invalid input for tool %s: %s", e.Tool, strings.Join(e.Violations, "; "))
}

// ToolExecutionError wraps an unexpected fault raised inside a tool so it
// surfaces as a recoverable observation instead of a crash.
type ToolExecutionError struct {
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// Error codes attached to tool faults in logs and tool results.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// ErrorCode classifies err into one of the tool fault codes, or "" when it
// is not a tool fault.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var invalid *InvalidToolInputError
	if errors.As(err, &invalid) {
		return CodeValidation
	}
	var exec *ToolExecutionError
	if errors.As(err, &exec) {
		return CodeExecution
	}
	return ""
}

// IsRecoverable reports whether the graph may absorb err and continue the
// turn with reduced evidence. Collaborator timeouts, invalid tool input and
// tool execution faults are recoverable; ErrIndexUnavailable and context
// cancellation are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrIndexUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var invalid *InvalidToolInputError
	var exec *ToolExecutionError
	if errors.As(err, &invalid) || errors.As(err, &exec) {
		return true
	}
	// A deadline on a collaborator call means reduced evidence, not a
	// failed turn.
	return errors.Is(err, context.DeadlineExceeded)
}
