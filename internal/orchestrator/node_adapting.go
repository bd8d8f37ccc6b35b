package orchestrator

import (
	"context"

	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
	"github.com/pocketomega/axon/internal/state"
	"github.com/pocketomega/axon/internal/xlog"
)

// adaptingNode implements core.BaseNode for the Adapting phase: it applies
// the single StrategyAdjustment reflectingNode proposed to the execution
// context and, for adjustments that invalidate the current plan
// (Rollback, DecomposeFurther), clears runState.execPlan so planningNode
// redecomposes on its next visit.
//
// Rollback here is a pragmatic simplification: it does not restore prior
// ExecutionContext state from a checkpoint (that would need new mutator
// methods exposing the active/completed task slices for replacement), it
// only confirms a checkpoint exists for this run and forces a fresh
// decomposition, on the reasoning that most rollback-worthy situations in
// this runtime stem from a bad plan rather than bad task results.
type adaptingNode struct {
	store     *state.Store
	planStore *planning.Store
	log       *xlog.Logger
}

func newAdaptingNode(store *state.Store, planStore *planning.Store) *adaptingNode {
	return &adaptingNode{store: store, planStore: planStore, log: xlog.New("orchestrator")}
}

func (n *adaptingNode) Prep(rs *runState) []*runState {
	return []*runState{rs}
}

func (n *adaptingNode) Exec(ctx context.Context, rs *runState) (struct{}, error) {
	if n.store == nil || rs.lastReflection == nil || len(rs.lastReflection.Adjustments) == 0 {
		return struct{}{}, nil
	}
	adj := rs.lastReflection.Adjustments[0]
	if adj.Kind == goalmodel.AdjustRollback {
		if _, ok, err := n.store.Get(ctx, rs.runID); err != nil {
			n.log.Printf("rollback: checkpoint lookup for run %s failed: %v", rs.runID, err)
		} else if !ok {
			n.log.Printf("rollback: no checkpoint found for run %s, replanning from current state", rs.runID)
		}
	}
	return struct{}{}, nil
}

func (n *adaptingNode) Post(rs *runState, _ []*runState, _ ...struct{}) core.Action {
	if rs.lastReflection == nil || len(rs.lastReflection.Adjustments) == 0 {
		return core.ActionReasoning
	}
	adj := rs.lastReflection.Adjustments[0]
	rs.ctx.ApplyAdjustment(adj)

	switch adj.Kind {
	case goalmodel.AdjustRollback, goalmodel.AdjustDecomposeFurther:
		rs.execPlan = nil
		rs.phaseIndex = 0
		if n.planStore != nil {
			n.planStore.Delete(rs.runID)
		}
	}

	return core.ActionReasoning
}

func (n *adaptingNode) ExecFallback(err error) struct{} {
	return struct{}{}
}
