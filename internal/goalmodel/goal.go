// Package goalmodel holds the data model threaded through the orchestrator:
// Goal, Task, ExecutionContext, Action/ActionPlan, Observation,
// ReflectionResult and MemoryItem. It carries invariants, not behavior —
// engines in other packages operate on these types.
package goalmodel

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GoalKind classifies the kind of work a Goal represents.
type GoalKind string

const (
	GoalCodeGeneration GoalKind = "code_generation"
	GoalAnalysis       GoalKind = "analysis"
	GoalRefactoring    GoalKind = "refactoring"
	GoalDebugging      GoalKind = "debugging"
	GoalPlanning       GoalKind = "planning"
	GoalResearch       GoalKind = "research"
	GoalProblemSolving GoalKind = "problem_solving"
	GoalLearning       GoalKind = "learning"
)

// Priority ranks Goals and Tasks.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityRank gives a numeric ordering for tie-breaking in the planner.
var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:      2,
	PriorityCritical: 3,
}

// Rank returns p's numeric ordering, higher is more urgent.
func (p Priority) Rank() int { return priorityRank[p] }

// Goal is the caller-supplied objective. It is immutable once handed to the
// orchestrator; per-run parameters travel in ExecutionContext instead.
type Goal struct {
	ID               string
	Description      string
	Kind             GoalKind
	Priority         Priority
	MaxIterations    *int
	Timeout          *time.Duration
	SuccessCriteria  []string
	Metadata         map[string]string
}

// NewGoal constructs a Goal with a generated id and validates invariants.
func NewGoal(description string, kind GoalKind, priority Priority, criteria []string) (*Goal, error) {
	g := &Goal{
		ID:              uuid.NewString(),
		Description:     description,
		Kind:            kind,
		Priority:        priority,
		SuccessCriteria: criteria,
		Metadata:        map[string]string{},
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the invariants from the data model: non-empty
// description, at least one success criterion, max-iterations >= 1 when
// set, timeout > 0 when set.
func (g *Goal) Validate() error {
	if g.Description == "" {
		return fmt.Errorf("goalmodel: goal description must not be empty")
	}
	if len(g.SuccessCriteria) == 0 {
		return fmt.Errorf("goalmodel: goal %q must have at least one success criterion", g.ID)
	}
	if g.MaxIterations != nil && *g.MaxIterations < 1 {
		return fmt.Errorf("goalmodel: goal %q max-iterations must be >= 1", g.ID)
	}
	if g.Timeout != nil && *g.Timeout <= 0 {
		return fmt.Errorf("goalmodel: goal %q timeout must be > 0", g.ID)
	}
	return nil
}
