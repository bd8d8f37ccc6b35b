package orchestrator

import (
	"context"

	"github.com/pocketomega/axon/internal/concurrency"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/reflection"
)

type reflectingExecResult struct {
	result *goalmodel.ReflectionResult // nil when no trigger fired this iteration
}

// reflectingNode implements core.BaseNode for the Reflecting phase.
// Observing always routes here (per spec.md's state table), but the node
// itself decides whether a trigger actually warrants running the reflection
// engine's scoring/adjustment machinery — most iterations it doesn't, and
// this is a cheap pass-through back to Reasoning.
type reflectingNode struct {
	engine  *reflection.Engine
	monitor *concurrency.ResourceMonitor
}

func newReflectingNode(engine *reflection.Engine, monitor *concurrency.ResourceMonitor) *reflectingNode {
	return &reflectingNode{engine: engine, monitor: monitor}
}

func (n *reflectingNode) Prep(state *runState) []*runState {
	return []*runState{state}
}

func (n *reflectingNode) Exec(ctx context.Context, state *runState) (reflectingExecResult, error) {
	snap := state.ctx.Snapshot()
	recent := state.ctx.RecentObservations(reflection.DefaultWindow)

	trig := n.engine.Evaluator().Evaluate(reflection.TriggerInputs{
		Snapshot:           snap,
		LastConfidence:     state.lastReasoning.Confidence,
		RecentObservations: recent,
	})
	if !trig.ShouldReflect {
		return reflectingExecResult{}, nil
	}

	utilization := 0.0
	if sample := n.monitor.Latest(); sample.HeapAllocMB > 0 {
		utilization = sample.HeapAllocMB / 512.0
		if utilization > 1 {
			utilization = 1
		}
	}

	result := n.engine.Reflect(state.ctx, trig, utilization)
	return reflectingExecResult{result: result}, nil
}

func (n *reflectingNode) Post(state *runState, _ []*runState, results ...reflectingExecResult) core.Action {
	res := results[0]
	if res.result == nil {
		return core.ActionReasoning
	}
	state.lastReflection = res.result

	for _, adj := range res.result.Adjustments {
		if adj.Kind == goalmodel.AdjustAbort {
			state.final = FinalFailed
			return core.ActionFailure
		}
	}
	if len(res.result.Adjustments) > 0 {
		return core.ActionAdapting
	}
	return core.ActionReasoning
}

func (n *reflectingNode) ExecFallback(err error) reflectingExecResult {
	return reflectingExecResult{}
}
