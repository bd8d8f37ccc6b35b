package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/goalmodel"
)

// observingNode implements core.BaseNode for the Observing phase: it turns
// the prior Executing phase's task outcomes into append-only
// goalmodel.Observation entries. Per spec.md's state table Observing always
// transitions to Reflecting; whether that reflection pass actually scores
// anything is reflectingNode's decision, not this node's.
type observingNode struct{}

func newObservingNode() *observingNode { return &observingNode{} }

func (n *observingNode) Prep(state *runState) []*runState {
	return []*runState{state}
}

func (n *observingNode) Exec(ctx context.Context, state *runState) (struct{}, error) {
	for _, outcome := range state.pendingOutcomes {
		kind := goalmodel.ObservationToolResult
		content := outcome.output
		relevance := 0.5
		impact := "neutral"

		if outcome.err != nil {
			kind = goalmodel.ObservationError
			content = outcome.err.Error()
			relevance = 0.9
			impact = "negative"
		} else if content != "" {
			relevance = 0.7
			impact = "positive"
		}

		state.ctx.RecordObservation(goalmodel.Observation{
			ID:        uuid.NewString(),
			Kind:      kind,
			Content:   content,
			Source:    outcome.taskID,
			Relevance: relevance,
			Impact:    impact,
		})
	}
	state.pendingOutcomes = nil
	return struct{}{}, nil
}

func (n *observingNode) Post(state *runState, _ []*runState, _ ...struct{}) core.Action {
	return core.ActionReflecting
}

func (n *observingNode) ExecFallback(err error) struct{} {
	return struct{}{}
}
