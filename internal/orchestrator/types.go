// Package orchestrator implements the Agent Orchestrator from spec.md §4.1:
// the R-P-A-O-R (Reason-Plan-Act-Observe-Reflect) state machine driving a
// goalmodel.ExecutionContext through Reasoning, Planning, Executing,
// Observing, Reflecting, and Adapting phases until the goal completes,
// fails, or is cancelled.
//
// Grounded on internal/agent/{flow,decide,state}.go's node-wiring idiom
// (BuildAgentFlow, DecideNode.Post routing by core.Action), generalized
// from the ReAct Decide/Tool/Think/Answer loop to the six named phases.
package orchestrator

import (
	"time"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/concurrency"
	"github.com/pocketomega/axon/internal/goalmodel"
)

// FinalState is the closed set of terminal states a run can end in.
type FinalState string

const (
	FinalCompleted FinalState = "completed"
	FinalFailed    FinalState = "failed"
	FinalCancelled FinalState = "cancelled"
)

// Config bounds one orchestrator run, per spec.md §5.
type Config struct {
	ActionTimeout time.Duration // per-action timeout, default 30s
	MaxIterations int           // hard ceiling even when Goal.MaxIterations is unset
}

// DefaultConfig returns the spec's default action timeout (30s) and a
// generous iteration ceiling as a last-resort safety net independent of
// per-goal MaxIterations.
func DefaultConfig() Config {
	return Config{ActionTimeout: 30 * time.Second, MaxIterations: 500}
}

// Outcome is what Run returns: the terminal state, the final context
// snapshot, the last reflection (if any ran), and the fatal error for a
// Failed outcome.
type Outcome struct {
	RunID       string
	FinalState  FinalState
	Snapshot    goalmodel.Snapshot
	Reflection  *goalmodel.ReflectionResult
	CancelReason concurrency.CancelReason
	Err         *agenterr.AgentError
}

// Metrics is a point-in-time summary of one run, exposed by
// Orchestrator.Metrics for callers that want progress without waiting for
// Run to return (e.g. a status endpoint).
type Metrics struct {
	RunID          string
	IterationCount int
	ActiveTasks    int
	CompletedTasks int
	SuccessfulTasks int
	Elapsed        time.Duration
}
