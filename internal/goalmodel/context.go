package goalmodel

import (
	"fmt"
	"sync"
	"time"
)

// ExecutionContext is the single mutable object threaded through the
// orchestrator's loop. Only the Orchestrator and its sub-engines mutate it;
// reflection must treat it as read-only and emit StrategyAdjustment values
// instead of writing to it directly.
type ExecutionContext struct {
	mu sync.Mutex

	Goal           *Goal
	IterationCount int
	StartTime      time.Time

	ActiveTasks    []*Task
	CompletedTasks []*Task

	Observations       []Observation
	StrategyAdjustments []StrategyAdjustment

	Variables map[string]any
	Metadata  map[string]string

	// StrategyHints is mutated only by the orchestrator's Adapting step in
	// response to reflection adjustments; reasoning/planning read it.
	StrategyHints []string

	nextSequence uint64
}

// NewExecutionContext creates a context for a fresh run of goal.
func NewExecutionContext(goal *Goal) *ExecutionContext {
	return &ExecutionContext{
		Goal:      goal,
		StartTime: time.Now(),
		Variables: map[string]any{},
		Metadata:  map[string]string{},
	}
}

// AdvanceIteration increments the iteration counter; the counter is
// monotonically non-decreasing for the lifetime of the context.
func (c *ExecutionContext) AdvanceIteration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.IterationCount++
}

// ActivateTask moves a task into ActiveTasks. It is an error for a task to
// appear in both ActiveTasks and CompletedTasks simultaneously.
func (c *ExecutionContext) ActivateTask(t *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ActiveTasks = append(c.ActiveTasks, t)
}

// CompleteTask moves a task from ActiveTasks to CompletedTasks, preserving
// history (CompletedTasks only ever grows).
func (c *ExecutionContext) CompleteTask(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.ActiveTasks {
		if t.ID == taskID {
			c.ActiveTasks = append(c.ActiveTasks[:i], c.ActiveTasks[i+1:]...)
			c.CompletedTasks = append(c.CompletedTasks, t)
			return nil
		}
	}
	return fmt.Errorf("goalmodel: task %q not found in active tasks", taskID)
}

// RecordObservation appends an Observation, assigning the next per-context
// sequence number.
func (c *ExecutionContext) RecordObservation(o Observation) Observation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSequence++
	o.Sequence = c.nextSequence
	c.Observations = append(c.Observations, o)
	return o
}

// RecentObservations returns the last n observations (or fewer if the
// context has fewer), oldest-first.
func (c *ExecutionContext) RecentObservations(n int) []Observation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n >= len(c.Observations) {
		out := make([]Observation, len(c.Observations))
		copy(out, c.Observations)
		return out
	}
	out := make([]Observation, n)
	copy(out, c.Observations[len(c.Observations)-n:])
	return out
}

// ApplyAdjustment records a strategy adjustment and folds its
// implementation steps into StrategyHints. This is the only place
// StrategyHints is written, matching the "reflection never mutates context
// directly" design note.
func (c *ExecutionContext) ApplyAdjustment(adj StrategyAdjustment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StrategyAdjustments = append(c.StrategyAdjustments, adj)
	c.StrategyHints = append(c.StrategyHints, adj.ImplementationSteps...)
}

// TaskByID finds a task among active or completed tasks.
func (c *ExecutionContext) TaskByID(id string) (*Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.ActiveTasks {
		if t.ID == id {
			return t, true
		}
	}
	for _, t := range c.CompletedTasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Snapshot returns point-in-time counts used by reflection scoring and
// metrics, without exposing the mutable slices themselves.
type Snapshot struct {
	IterationCount int
	ActiveCount    int
	CompletedCount int
	SuccessfulCount int
}

// Snapshot takes a consistent read of counts under lock.
func (c *ExecutionContext) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		IterationCount: c.IterationCount,
		ActiveCount:    len(c.ActiveTasks),
		CompletedCount: len(c.CompletedTasks),
	}
	for _, t := range c.CompletedTasks {
		if t.Success == SuccessTrue {
			s.SuccessfulCount++
		}
	}
	return s
}
