package orchestrator

import (
	"context"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
)

// planningExecResult is the outcome of one decompose+schedule+action-plan
// pass over the current goal.
type planningExecResult struct {
	tasks   []*goalmodel.Task
	execPlan *planning.ExecutionPlan
	plans   map[string]*goalmodel.ActionPlan
}

// planningNode implements core.BaseNode for the Planning phase: HTN
// decomposition of the goal into tasks (only on first entry; later entries
// reuse the existing decomposition unless Adapting cleared it), dependency
// scheduling, and one ActionPlan per task.
type planningNode struct {
	decomposer    *planning.Decomposer
	analyzer      *planning.Analyzer
	actionPlanner *planning.ActionPlanner
	planStore     *planning.Store // records the latest plan per run, for external inspection (e.g. a status endpoint)
}

func newPlanningNode(decomposer *planning.Decomposer, analyzer *planning.Analyzer, actionPlanner *planning.ActionPlanner, planStore *planning.Store) *planningNode {
	return &planningNode{decomposer: decomposer, analyzer: analyzer, actionPlanner: actionPlanner, planStore: planStore}
}

func (n *planningNode) Prep(state *runState) []*runState {
	return []*runState{state}
}

func (n *planningNode) Exec(ctx context.Context, state *runState) (planningExecResult, error) {
	if state.execPlan != nil {
		// Re-entry without an intervening Adapting reset: nothing new to
		// decompose, just re-surface what's already scheduled.
		return planningExecResult{execPlan: state.execPlan}, nil
	}

	tasks, err := n.decomposer.Decompose(ctx, state.ctx.Goal)
	if err != nil {
		return planningExecResult{}, err
	}
	if len(tasks) == 0 {
		return planningExecResult{}, agenterr.New(agenterr.KindInternal, "planning: decomposition produced no tasks")
	}

	execPlan, err := n.analyzer.Analyze(tasks)
	if err != nil {
		return planningExecResult{}, agenterr.Wrap(agenterr.KindInternal, "planning: schedule tasks", err)
	}

	plans := make(map[string]*goalmodel.ActionPlan, len(tasks))
	for _, p := range n.actionPlanner.PlanAll(tasks) {
		plans[p.TaskID] = p
	}

	return planningExecResult{tasks: tasks, execPlan: execPlan, plans: plans}, nil
}

func (n *planningNode) Post(state *runState, _ []*runState, results ...planningExecResult) core.Action {
	res := results[0]
	if state.execPlan == nil {
		if res.execPlan == nil {
			state.final = FinalFailed
			state.err = agenterr.New(agenterr.KindInternal, "planning: unable to produce an execution plan after retries")
			return core.ActionFailure
		}
		state.execPlan = res.execPlan
		state.phaseIndex = 0
		for _, t := range res.tasks {
			state.tasksByID[t.ID] = t
		}
		for id, p := range res.plans {
			state.actionPlans[id] = p
		}
		if n.planStore != nil {
			n.planStore.Set(state.runID, res.execPlan)
		}
	}
	return core.ActionExecuting
}

func (n *planningNode) ExecFallback(err error) planningExecResult {
	return planningExecResult{}
}
