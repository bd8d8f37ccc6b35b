package orchestrator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/orchestrator"
	"github.com/pocketomega/axon/internal/tool"
)

func newGoal(t *testing.T, description string, criteria ...string) *goalmodel.Goal {
	t.Helper()
	g, err := goalmodel.NewGoal(description, goalmodel.GoalProblemSolving, goalmodel.PriorityMedium, criteria)
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}
	return g
}

func TestRun_CompletesWhenFirstReasoningPassClearsThreshold(t *testing.T) {
	model := engine.NewMockEngine(
		engine.Response{Content: "reasoning_output: already satisfied\nconfidence: 0.95\ngoal_met_confidence: 0.95\n"},
		engine.Response{Content: "confidence: 0.95\nrationale: evidence checks out\n"},
	)
	orc := orchestrator.NewOrchestrator(model, tool.NewRegistry(), nil, orchestrator.DefaultConfig())
	defer orc.Close()

	goal := newGoal(t, "do something trivial", "it is done")
	out, err := orc.Run(context.Background(), goal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FinalState != orchestrator.FinalCompleted {
		t.Fatalf("FinalState = %q, want %q", out.FinalState, orchestrator.FinalCompleted)
	}
	if out.Snapshot.IterationCount != 1 {
		t.Errorf("IterationCount = %d, want 1", out.Snapshot.IterationCount)
	}
}

func TestRun_PlansExecutesAndCompletesOverTwoIterations(t *testing.T) {
	model := engine.NewMockEngine(
		engine.Response{Content: "reasoning_output: need to keep going\nconfidence: 0.5\ngoal_met_confidence: 0.2\n"},
		engine.Response{Content: "no subtasks here"}, // decompose: no SUBTASK lines -> treated as one primitive task
		engine.Response{Content: "reasoning_output: looks complete\nconfidence: 0.95\ngoal_met_confidence: 0.95\n"},
		engine.Response{Content: "confidence: 0.95\nrationale: verified\n"},
	)
	orc := orchestrator.NewOrchestrator(model, tool.NewRegistry(), nil, orchestrator.DefaultConfig())
	defer orc.Close()

	goal := newGoal(t, "finish the assignment", "assignment is finished")
	out, err := orc.Run(context.Background(), goal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FinalState != orchestrator.FinalCompleted {
		t.Fatalf("FinalState = %q, want %q", out.FinalState, orchestrator.FinalCompleted)
	}
	if out.Snapshot.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d, want 1", out.Snapshot.CompletedCount)
	}
	if out.Snapshot.SuccessfulCount != 1 {
		t.Errorf("SuccessfulCount = %d, want 1", out.Snapshot.SuccessfulCount)
	}
}

func TestRun_FailsWhenIterationBudgetExhausted(t *testing.T) {
	model := engine.NewMockEngine(
		engine.Response{Content: "reasoning_output: stuck\nconfidence: 0.3\ngoal_met_confidence: 0.1\n"},
		engine.Response{Content: "no subtasks"},
	)
	cfg := orchestrator.DefaultConfig()
	maxIter := 1
	orc := orchestrator.NewOrchestrator(model, tool.NewRegistry(), nil, cfg)
	defer orc.Close()

	goal := newGoal(t, "an impossible task", "it is impossible to finish")
	goal.MaxIterations = &maxIter

	out, err := orc.Run(context.Background(), goal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FinalState != orchestrator.FinalFailed {
		t.Fatalf("FinalState = %q, want %q", out.FinalState, orchestrator.FinalFailed)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "iteration budget") {
		t.Errorf("Err = %v, want an iteration-budget error", out.Err)
	}
}

func TestRun_CancelledMidRunReportsCancelled(t *testing.T) {
	model := engine.NewMockEngine(
		engine.Response{Content: "reasoning_output: stuck\nconfidence: 0.3\ngoal_met_confidence: 0.1\n"},
	)
	orc := orchestrator.NewOrchestrator(model, tool.NewRegistry(), nil, orchestrator.DefaultConfig())
	defer orc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the run even starts its first node transition

	goal := newGoal(t, "a long running task", "task is done")
	out, err := orc.Run(ctx, goal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.FinalState != orchestrator.FinalCancelled {
		t.Fatalf("FinalState = %q, want %q", out.FinalState, orchestrator.FinalCancelled)
	}
}
