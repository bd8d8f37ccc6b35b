package core

// Action represents the result of a node execution that determines flow control.
type Action string

// Common actions used throughout the framework.
const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionDefault  Action = "default"

	// Agent routing actions
	ActionTool   Action = "tool"
	ActionThink  Action = "think"
	ActionAnswer Action = "answer"

	// Goal-pipeline phase actions, returned by the orchestrator's phase nodes
	// (internal/orchestrator) to route the R-P-A-O-R loop's Workflow graph.
	ActionReasoning  Action = "reasoning"
	ActionPlanning   Action = "planning"
	ActionExecuting  Action = "executing"
	ActionObserving  Action = "observing"
	ActionReflecting Action = "reflecting"
	ActionAdapting   Action = "adapting"
	ActionCancelled  Action = "cancelled"
)
