package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/concurrency"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/state"
	"github.com/pocketomega/axon/internal/tool"
)

// taskOutcome records one task's execution result for Observing to fold
// into goalmodel.Observation entries.
type taskOutcome struct {
	taskID    string
	output    string
	err       error
	risk      goalmodel.Risk
	duration  time.Duration
}

type executingExecResult struct {
	outcomes []taskOutcome
}

// executingNode implements core.BaseNode for the Executing phase: it runs
// every task in the current scheduled phase, up to the resource monitor's
// recommended concurrency, invoking each task's planned tool through the
// registry. Grounded on the teacher's agent/flow.go wiring idiom, generalized
// from a single ReAct tool call to a bounded-parallel phase of them.
type executingNode struct {
	registry      *tool.Registry
	monitor       *concurrency.ResourceMonitor
	store         *state.Store // optional; nil disables per-phase checkpointing
	actionTimeout time.Duration
}

func newExecutingNode(registry *tool.Registry, monitor *concurrency.ResourceMonitor, store *state.Store, actionTimeout time.Duration) *executingNode {
	return &executingNode{registry: registry, monitor: monitor, store: store, actionTimeout: actionTimeout}
}

func (n *executingNode) Prep(state *runState) []*runState {
	return []*runState{state}
}

func (n *executingNode) Exec(ctx context.Context, state *runState) (executingExecResult, error) {
	if state.phaseIndex >= len(state.execPlan.Phases) {
		return executingExecResult{}, nil
	}
	phase := state.execPlan.Phases[state.phaseIndex]

	limit := n.monitor.Concurrency()
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	outcomes := make([]taskOutcome, len(phase.Tasks))
	var wg sync.WaitGroup
	for i, taskID := range phase.Tasks {
		task, ok := state.tasksByID[taskID]
		if !ok {
			outcomes[i] = taskOutcome{taskID: taskID, err: agenterr.New(agenterr.KindInternal, "executing: unknown task id "+taskID)}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task *goalmodel.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = n.runTask(ctx, state, task)
		}(i, task)
	}
	wg.Wait()

	return executingExecResult{outcomes: outcomes}, nil
}

func (n *executingNode) runTask(ctx context.Context, state *runState, task *goalmodel.Task) taskOutcome {
	plan := state.actionPlans[task.ID]
	risk := goalmodel.RiskLow
	if plan != nil {
		risk = plan.AggregateRisk()
	}

	task.MarkInProgress()
	state.ctx.ActivateTask(task)

	if plan == nil || len(plan.Actions) == 0 {
		return taskOutcome{taskID: task.ID, risk: risk}
	}

	start := time.Now()
	var lastOutput string
	for _, action := range plan.Actions {
		if action.ToolName == "" {
			continue
		}
		t, ok := n.registry.Get(action.ToolName)
		if !ok {
			return taskOutcome{taskID: task.ID, risk: risk, duration: time.Since(start),
				err: agenterr.New(agenterr.KindToolExecution, "executing: unknown tool "+action.ToolName)}
		}

		args, err := json.Marshal(action.Parameters)
		if err != nil {
			return taskOutcome{taskID: task.ID, risk: risk, duration: time.Since(start),
				err: agenterr.Wrap(agenterr.KindValidation, "executing: marshal tool args", err)}
		}

		actionCtx := ctx
		if n.actionTimeout > 0 {
			var cancel context.CancelFunc
			actionCtx, cancel = context.WithTimeout(ctx, n.actionTimeout)
			defer cancel()
		}

		actionStart := time.Now()
		result, err := t.Execute(actionCtx, args)
		n.registry.RecordExecution(action.ToolName, time.Since(actionStart), err == nil && result.Error == "")
		if err != nil {
			return taskOutcome{taskID: task.ID, risk: risk, duration: time.Since(start),
				err: agenterr.Wrap(agenterr.KindToolExecution, "executing: tool "+action.ToolName, err)}
		}
		if result.Error != "" {
			return taskOutcome{taskID: task.ID, risk: risk, duration: time.Since(start),
				err: agenterr.New(agenterr.KindToolExecution, "executing: tool "+action.ToolName+" reported: "+result.Error)}
		}
		lastOutput = result.Output
	}

	return taskOutcome{taskID: task.ID, output: lastOutput, risk: risk, duration: time.Since(start)}
}

func (n *executingNode) Post(state *runState, _ []*runState, results ...executingExecResult) core.Action {
	for _, outcome := range results[0].outcomes {
		task, ok := state.tasksByID[outcome.taskID]
		if !ok {
			continue
		}
		if outcome.err != nil {
			task.MarkFailed(outcome.err.Error())
			if task.CanRetry() {
				task.Status = goalmodel.TaskPending
			}
		} else {
			task.MarkComplete()
		}
		if err := state.ctx.CompleteTask(task.ID); err != nil {
			// Task is not among the context's active tasks; nothing to do.
			_ = err
		}
	}

	state.pendingOutcomes = results[0].outcomes
	state.phaseIndex++

	if n.store != nil {
		n.store.Put(checkpointOf(state))
	}

	return core.ActionObserving
}

func (n *executingNode) ExecFallback(err error) executingExecResult {
	return executingExecResult{}
}
