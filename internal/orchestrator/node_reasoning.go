package orchestrator

import (
	"context"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/reasoning"
)

// reasoningResult bundles the reasoning pass and, when goal_met_confidence
// clears reasoning.ThetaComplete, the corroborating per-criterion
// verification pass — both run inside Exec since core.BaseNode.Post has no
// context to make further model calls from.
type reasoningResult struct {
	reasoning     reasoning.ReasoningResult
	verifications []reasoning.CriterionVerification
}

// reasoningNode implements core.BaseNode for the Reasoning phase.
type reasoningNode struct {
	engine           *reasoning.Engine
	maxIterationsCap int // fallback ceiling when Goal.MaxIterations is unset
}

func newReasoningNode(engine *reasoning.Engine, maxIterationsCap int) *reasoningNode {
	return &reasoningNode{engine: engine, maxIterationsCap: maxIterationsCap}
}

func (n *reasoningNode) Prep(state *runState) []*runState {
	state.ctx.AdvanceIteration()
	return []*runState{state}
}

func (n *reasoningNode) Exec(ctx context.Context, state *runState) (reasoningResult, error) {
	result, err := n.engine.Reason(ctx, state.ctx)
	if err != nil {
		return reasoningResult{reasoning: result}, err
	}

	var verifications []reasoning.CriterionVerification
	if result.GoalMetConfidence >= reasoning.ThetaComplete {
		verifications, err = n.engine.VerifyCriteria(ctx, state.ctx, state.ctx.Goal.SuccessCriteria)
		if err != nil {
			return reasoningResult{reasoning: result}, err
		}
	}
	return reasoningResult{reasoning: result, verifications: verifications}, nil
}

func (n *reasoningNode) Post(state *runState, _ []*runState, results ...reasoningResult) core.Action {
	res := results[0]
	state.lastReasoning = res.reasoning
	state.lastVerifications = res.verifications

	if reasoning.GoalMet(res.reasoning.GoalMetConfidence, res.verifications) {
		state.final = FinalCompleted
		return core.ActionSuccess
	}

	goal := state.ctx.Goal
	limit := n.maxIterationsCap
	if goal.MaxIterations != nil {
		limit = *goal.MaxIterations
	}
	if limit > 0 && state.ctx.IterationCount >= limit {
		state.final = FinalFailed
		state.err = agenterr.New(agenterr.KindInternal, "iteration budget exhausted before goal completion")
		return core.ActionFailure
	}

	return core.ActionPlanning
}

func (n *reasoningNode) ExecFallback(err error) reasoningResult {
	return reasoningResult{reasoning: reasoning.ReasoningResult{
		ReasoningOutput:   "reasoning call failed after retries; continuing conservatively",
		Confidence:        0.1,
		GoalMetConfidence: 0,
	}}
}
