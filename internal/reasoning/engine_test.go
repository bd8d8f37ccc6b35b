package reasoning_test

import (
	"context"
	"testing"

	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/reasoning"
)

func newTestContext(t *testing.T) *goalmodel.ExecutionContext {
	t.Helper()
	goal, err := goalmodel.NewGoal("write a fibonacci function", goalmodel.GoalCodeGeneration, goalmodel.PriorityMedium,
		[]string{"function compiles", "returns correct fibonacci"})
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}
	return goalmodel.NewExecutionContext(goal)
}

func TestReason_ParsesYAML(t *testing.T) {
	mock := engine.NewMockEngine(engine.Response{Content: `
reasoning_output: the function now compiles and the tests pass
confidence: 0.9
goal_met_confidence: 0.95
suggested_next_actions:
  - finish
`})
	e := reasoning.NewEngine(mock)
	ctxState := newTestContext(t)

	result, err := e.Reason(context.Background(), ctxState)
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if result.GoalMetConfidence != 0.95 {
		t.Errorf("goal_met_confidence = %v, want 0.95", result.GoalMetConfidence)
	}
	if len(result.SuggestedNextActions) != 1 || result.SuggestedNextActions[0] != "finish" {
		t.Errorf("suggested_next_actions = %v", result.SuggestedNextActions)
	}
}

func TestReason_RecoversFromBackslashes(t *testing.T) {
	mock := engine.NewMockEngine(engine.Response{Content: `
reasoning_output: "wrote file to C:\broken\path"
confidence: 0.5
goal_met_confidence: 0.1
`})
	e := reasoning.NewEngine(mock)
	ctxState := newTestContext(t)

	result, err := e.Reason(context.Background(), ctxState)
	if err != nil {
		t.Fatalf("Reason: %v", err)
	}
	if result.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", result.Confidence)
	}
}

func TestReason_FallsBackOnUnparsableOutput(t *testing.T) {
	mock := engine.NewMockEngine(engine.Response{Content: "not yaml at all {{{"})
	e := reasoning.NewEngine(mock)
	ctxState := newTestContext(t)

	result, err := e.Reason(context.Background(), ctxState)
	if err != nil {
		t.Fatalf("Reason should fall back, not error: %v", err)
	}
	if result.GoalMetConfidence != 0 {
		t.Errorf("fallback goal_met_confidence = %v, want 0", result.GoalMetConfidence)
	}
}

func TestGoalMet(t *testing.T) {
	cases := []struct {
		name              string
		goalMetConfidence float64
		verifications     []reasoning.CriterionVerification
		want              bool
	}{
		{
			name:              "both thresholds cleared",
			goalMetConfidence: 0.95,
			verifications: []reasoning.CriterionVerification{
				{Criterion: "a", Confidence: 0.92},
				{Criterion: "b", Confidence: 0.93},
			},
			want: true,
		},
		{
			name:              "one criterion fails verification",
			goalMetConfidence: 0.95,
			verifications: []reasoning.CriterionVerification{
				{Criterion: "a", Confidence: 0.92},
				{Criterion: "b", Confidence: 0.4},
			},
			want: false,
		},
		{
			name:              "reasoning confidence itself below threshold",
			goalMetConfidence: 0.8,
			verifications: []reasoning.CriterionVerification{
				{Criterion: "a", Confidence: 0.95},
			},
			want: false,
		},
		{
			name:              "no criteria verified",
			goalMetConfidence: 0.95,
			verifications:     nil,
			want:              false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reasoning.GoalMet(tc.goalMetConfidence, tc.verifications)
			if got != tc.want {
				t.Errorf("GoalMet() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerifyCriteria_ScoresFailureAsZero(t *testing.T) {
	// An unclosed flow sequence cannot be parsed, so the criterion fails.
	mock := engine.NewMockEngine(engine.Response{Content: "confidence: [0.9"})
	e := reasoning.NewEngine(mock)
	ctxState := newTestContext(t)

	verifications, err := e.VerifyCriteria(context.Background(), ctxState, []string{"function compiles"})
	if err != nil {
		t.Fatalf("VerifyCriteria: %v", err)
	}
	if len(verifications) != 1 {
		t.Fatalf("len(verifications) = %d, want 1", len(verifications))
	}
	if verifications[0].Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for unparsable response", verifications[0].Confidence)
	}
}
