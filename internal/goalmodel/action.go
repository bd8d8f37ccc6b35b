package goalmodel

import "time"

// ActionKind is the category of side effect an Action performs.
type ActionKind string

const (
	ActionFileOperation ActionKind = "file_operation"
	ActionShellCommand  ActionKind = "shell_command"
	ActionToolCall      ActionKind = "tool_call"
	ActionMemoryQuery   ActionKind = "memory_query"
	ActionModelCall     ActionKind = "model_call"
)

// Risk is the declared risk level of an Action, used by the orchestrator's
// failure semantics (a fatal error on a High-risk action with an
// unrecoverable transport error terminates the goal).
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// riskRank orders Risk values so an ActionPlan can compute an aggregate
// (max) risk across its actions.
var riskRank = map[Risk]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Action is one intended side-effect, transient: created by the planner,
// consumed by the executor, summarized into Observations.
type Action struct {
	ID                string
	Kind              ActionKind
	ToolName          string
	Parameters        map[string]any
	Risk              Risk
	EstimatedDuration time.Duration
	DependencyIDs     []string
}

// ActionPlan groups ordered Actions for one Task and carries an aggregate
// risk (the maximum risk across its actions).
type ActionPlan struct {
	TaskID  string
	Actions []Action
}

// AggregateRisk returns the highest Risk among the plan's actions, or
// RiskLow for an empty plan.
func (p *ActionPlan) AggregateRisk() Risk {
	max := RiskLow
	for _, a := range p.Actions {
		if riskRank[a.Risk] > riskRank[max] {
			max = a.Risk
		}
	}
	return max
}
