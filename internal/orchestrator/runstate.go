package orchestrator

import (
	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
	"github.com/pocketomega/axon/internal/reasoning"
)

// runState is the State type the orchestrator's core.Flow operates over.
// It wraps the domain-level goalmodel.ExecutionContext with orchestration
// plumbing (the current plan, pending action batch, last phase outputs)
// that does not belong in goalmodel — goalmodel carries invariants, not
// run-loop bookkeeping.
type runState struct {
	runID string
	ctx   *goalmodel.ExecutionContext

	execPlan    *planning.ExecutionPlan
	tasksByID   map[string]*goalmodel.Task
	actionPlans map[string]*goalmodel.ActionPlan
	phaseIndex  int

	lastReasoning     reasoning.ReasoningResult
	lastVerifications []reasoning.CriterionVerification
	lastReflection    *goalmodel.ReflectionResult
	pendingOutcomes   []taskOutcome

	final FinalState
	err   *agenterr.AgentError
}

func newRunState(runID string, ctx *goalmodel.ExecutionContext) *runState {
	return &runState{
		runID:       runID,
		ctx:         ctx,
		tasksByID:   make(map[string]*goalmodel.Task),
		actionPlans: make(map[string]*goalmodel.ActionPlan),
	}
}
