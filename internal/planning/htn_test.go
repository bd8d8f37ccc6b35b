package planning_test

import (
	"context"
	"testing"

	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
)

func TestDecompose_StopsAtPrimitiveLeaves(t *testing.T) {
	mock := engine.NewMockEngine(engine.Response{Content: `
SUBTASK: write the function signature
TYPE: primitive
SUBTASK: implement the recursive case
TYPE: primitive
SUBTASK: write tests
TYPE: primitive
`})
	d := planning.NewDecomposer(mock)
	goal, err := goalmodel.NewGoal("implement fibonacci", goalmodel.GoalCodeGeneration, goalmodel.PriorityMedium, []string{"compiles"})
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}

	tasks, err := d.Decompose(context.Background(), goal)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.Rationale == "" {
			t.Errorf("task %q has empty Rationale", task.ID)
		}
	}
}

func TestDecompose_FallsBackToSelfWhenModelReturnsNothing(t *testing.T) {
	mock := engine.NewMockEngine(engine.Response{Content: "no usable output"})
	d := planning.NewDecomposer(mock)
	goal, err := goalmodel.NewGoal("a goal with no decomposition", goalmodel.GoalAnalysis, goalmodel.PriorityLow, []string{"done"})
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}

	tasks, err := d.Decompose(context.Background(), goal)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1 (the goal itself, treated as primitive)", len(tasks))
	}
	if tasks[0].Description != goal.Description {
		t.Errorf("task description = %q, want %q", tasks[0].Description, goal.Description)
	}
}
