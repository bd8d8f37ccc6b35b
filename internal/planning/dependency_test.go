package planning_test

import (
	"testing"
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/planning"
)

func task(id string, deps ...string) *goalmodel.Task {
	d := 5 * time.Minute
	return &goalmodel.Task{
		ID:                id,
		Description:       id,
		Priority:          goalmodel.PriorityMedium,
		Status:            goalmodel.TaskPending,
		DependencyIDs:     deps,
		EstimatedDuration: &d,
	}
}

func TestAnalyze_OrdersByDependency(t *testing.T) {
	tasks := []*goalmodel.Task{
		task("a"),
		task("b", "a"),
		task("c", "a"),
		task("d", "b", "c"),
	}

	plan, err := planning.NewAnalyzer().Analyze(tasks)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.Phases) != 3 {
		t.Fatalf("len(phases) = %d, want 3 (a | b,c | d)", len(plan.Phases))
	}
	if plan.Phases[0].Tasks[0] != "a" {
		t.Errorf("phase 0 = %v, want [a]", plan.Phases[0].Tasks)
	}
	if len(plan.Phases[1].Tasks) != 2 {
		t.Errorf("phase 1 = %v, want 2 parallel tasks", plan.Phases[1].Tasks)
	}
	if plan.Phases[2].Tasks[0] != "d" {
		t.Errorf("phase 2 = %v, want [d]", plan.Phases[2].Tasks)
	}
	if len(plan.ParallelGroups) != 1 {
		t.Errorf("len(parallel groups) = %d, want 1", len(plan.ParallelGroups))
	}
}

func TestAnalyze_DetectsCycle(t *testing.T) {
	tasks := []*goalmodel.Task{
		task("a", "b"),
		task("b", "a"),
	}
	_, err := planning.NewAnalyzer().Analyze(tasks)
	if err == nil {
		t.Fatal("expected a PlanningCycleError, got nil")
	}
	var cycleErr *planning.PlanningCycleError
	if !asCycleError(err, &cycleErr) {
		t.Fatalf("expected *PlanningCycleError, got %T: %v", err, err)
	}
}

func asCycleError(err error, target **planning.PlanningCycleError) bool {
	ce, ok := err.(*planning.PlanningCycleError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func TestAnalyze_CriticalPathFollowsLongestChain(t *testing.T) {
	short := 1 * time.Minute
	long := 10 * time.Minute
	a := task("a")
	a.EstimatedDuration = &short
	b := task("b", "a")
	b.EstimatedDuration = &long
	c := task("c", "a")
	c.EstimatedDuration = &short
	d := task("d", "b", "c")
	d.EstimatedDuration = &short

	plan, err := planning.NewAnalyzer().Analyze([]*goalmodel.Task{a, b, c, d})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []string{"a", "b", "d"}
	if len(plan.CriticalPath) != len(want) {
		t.Fatalf("critical path = %v, want %v", plan.CriticalPath, want)
	}
	for i := range want {
		if plan.CriticalPath[i] != want[i] {
			t.Errorf("critical path[%d] = %q, want %q", i, plan.CriticalPath[i], want[i])
		}
	}
}

func TestAnalyze_InfersEdgeFromInputsOutputs(t *testing.T) {
	producer := task("producer")
	producer.ExpectedOutputs = []string{"report.txt"}
	consumer := task("consumer")
	consumer.Inputs = map[string]any{"file": "report.txt"}

	plan, err := planning.NewAnalyzer().Analyze([]*goalmodel.Task{consumer, producer})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.Phases) != 2 {
		t.Fatalf("len(phases) = %d, want 2 (inferred edge should force ordering)", len(plan.Phases))
	}
	if plan.Phases[0].Tasks[0] != "producer" {
		t.Errorf("phase 0 = %v, want [producer]", plan.Phases[0].Tasks)
	}
}
