// Package planning implements the HTN decomposer, dependency analyzer, and
// ActionPlanner from spec.md §4.2: turning a Goal/Task into a dependency-
// ordered ExecutionPlan of goalmodel.ActionPlan batches.
package planning

import (
	"fmt"
	"time"
)

// DefaultMaxDepth bounds HTN recursion, per
// original_source/crates/fluent-agent/src/planning/hierarchical_task_networks.rs's
// HTNConfig::default (max_depth: 6).
const DefaultMaxDepth = 6

// DefaultBottleneckTopK is how many highest-fan-in tasks the dependency
// analyzer reports as bottlenecks by default.
const DefaultBottleneckTopK = 3

// ParallelGroup is a set of task ids whose dependencies are all satisfied
// by the same point in the schedule, so they may run concurrently.
type ParallelGroup struct {
	TaskIDs []string
}

// ScheduledTask is one task placed in the topological order, annotated
// with the phase index it was scheduled into.
type ScheduledTask struct {
	TaskID string
	Phase  int
}

// Bottleneck is a task many others depend on directly (FanIn counts direct
// dependents only), reported so the orchestrator or a human can prioritize it.
type Bottleneck struct {
	TaskID     string
	FanIn      int
	OnCritical bool
}

// ExecutionPhase is one sequential step of the plan, containing one or
// more tasks that may run in parallel within the phase.
type ExecutionPhase struct {
	Tasks    []string
	Duration time.Duration
}

// ExecutionPlan is the dependency analyzer's output: sequential phases of
// parallel groups, a critical path, and bottleneck tasks.
type ExecutionPlan struct {
	Phases        []ExecutionPhase
	ParallelGroups []ParallelGroup
	CriticalPath  []string
	Bottlenecks   []Bottleneck
	TotalDuration time.Duration
}

// PlanningCycleError reports a dependency cycle detected among task ids
// during Kahn's-algorithm scheduling; the orchestrator must not execute a
// plan that could not be topologically ordered.
type PlanningCycleError struct {
	TaskIDs []string
}

func (e *PlanningCycleError) Error() string {
	return fmt.Sprintf("planning: dependency cycle detected among tasks %v", e.TaskIDs)
}
