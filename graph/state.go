// Package graph implements the agent control core: a state-machine
// decision graph that routes each user turn through planning, tool calls,
// retrieval and synthesis before responding. Transitions are explicit and
// every executed state is recorded in a trace, so a turn's path through
// the graph is fully reconstructable from its outcome.
package graph

import (
	"github.com/hupe1980/cinegraph/core"
	"github.com/hupe1980/cinegraph/memory"
	"github.com/hupe1980/cinegraph/retrieve"
)

// State is one node of the decision graph.
type State int

const (
	// StateStart initializes the turn and recalls long-term memories.
	StateStart State = iota
	// StatePlan asks the planner for the next action.
	StatePlan
	// StateToolCall invokes a tool chosen by the planner.
	StateToolCall
	// StateRetrieve runs similarity retrieval for a planner-chosen query.
	StateRetrieve
	// StateSynthesize composes the reply from everything gathered.
	StateSynthesize
	// StateRespond finalizes the turn successfully.
	StateRespond
	// StateFail terminates the turn with a user-visible apology.
	StateFail
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePlan:
		return "plan"
	case StateToolCall:
		return "tool_call"
	case StateRetrieve:
		return "retrieve"
	case StateSynthesize:
		return "synthesize"
	case StateRespond:
		return "respond"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// GraphState is the mutable context threaded through one turn's execution.
type GraphState struct {
	SessionID   string
	History     []core.Turn
	UserText    string
	ToolResults []core.ToolInvocation
	Evidence    retrieve.Result
	Memories    []memory.Memory
	Hops        int
	Trace       []State
}

func (gs *GraphState) visit(s State) {
	gs.Trace = append(gs.Trace, s)
}

// Outcome is the result of executing the graph for one user turn.
type Outcome struct {
	// Reply is the user-visible response text.
	Reply string
	// NewTurns are the turns to append to the conversation: the user turn
	// followed by the agent turn carrying any tool invocations. Nil when
	// Failed is set, so a failed turn leaves no trace in memory.
	NewTurns []core.Turn
	// Grounded is true when retrieved evidence backed the reply.
	Grounded bool
	// Sources lists the provenance of the evidence behind the reply.
	Sources []string
	// Failed marks a turn that ended in StateFail.
	Failed bool
	// Trace lists every state the turn executed, in order.
	Trace []State
}
