package orchestrator

import (
	"github.com/pocketomega/axon/internal/concurrency"
	"github.com/pocketomega/axon/internal/core"
	"github.com/pocketomega/axon/internal/planning"
	"github.com/pocketomega/axon/internal/reasoning"
	"github.com/pocketomega/axon/internal/reflection"
	"github.com/pocketomega/axon/internal/state"
	"github.com/pocketomega/axon/internal/tool"
)

// nodeMaxRetries bounds Exec retries for every phase node, matching the
// teacher's agent/flow.go's retry budget for its Decide/Tool/Think nodes.
const nodeMaxRetries = 2

// BuildOrchestratorFlow wires the six R-P-A-O-R phase nodes into a
// core.Flow[runState], grounded on internal/agent/flow.go's BuildAgentFlow:
// one core.Node per phase, connected by Action-keyed successors, wrapped in
// a single core.Flow whose start node is Reasoning.
func BuildOrchestratorFlow(
	cfg Config,
	reasoningEngine *reasoning.Engine,
	decomposer *planning.Decomposer,
	analyzer *planning.Analyzer,
	actionPlanner *planning.ActionPlanner,
	registry *tool.Registry,
	monitor *concurrency.ResourceMonitor,
	reflectionEngine *reflection.Engine,
	stateStore *state.Store,
	planStore *planning.Store,
) core.Workflow[runState] {
	reasoningN := core.NewNode[runState, *runState, reasoningResult](newReasoningNode(reasoningEngine, cfg.MaxIterations), nodeMaxRetries)
	planningN := core.NewNode[runState, *runState, planningExecResult](newPlanningNode(decomposer, analyzer, actionPlanner, planStore), nodeMaxRetries)
	executingN := core.NewNode[runState, *runState, executingExecResult](newExecutingNode(registry, monitor, stateStore, cfg.ActionTimeout), nodeMaxRetries)
	observingN := core.NewNode[runState, *runState, struct{}](newObservingNode(), 0)
	reflectingN := core.NewNode[runState, *runState, reflectingExecResult](newReflectingNode(reflectionEngine, monitor), nodeMaxRetries)
	adaptingN := core.NewNode[runState, *runState, struct{}](newAdaptingNode(stateStore, planStore), nodeMaxRetries)

	reasoningN.AddSuccessor(planningN, core.ActionPlanning)
	planningN.AddSuccessor(executingN, core.ActionExecuting)
	executingN.AddSuccessor(observingN, core.ActionObserving)
	observingN.AddSuccessor(reflectingN, core.ActionReflecting)
	reflectingN.AddSuccessor(reasoningN, core.ActionReasoning)
	reflectingN.AddSuccessor(adaptingN, core.ActionAdapting)
	adaptingN.AddSuccessor(reasoningN, core.ActionReasoning)

	return core.NewFlow[runState](reasoningN)
}
