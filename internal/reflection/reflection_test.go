package reflection_test

import (
	"testing"

	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/reflection"
)

func snapshot(iter, active, completed, successful int) goalmodel.Snapshot {
	return goalmodel.Snapshot{
		IterationCount:  iter,
		ActiveCount:     active,
		CompletedCount:  completed,
		SuccessfulCount: successful,
	}
}

func TestEvaluator_PeriodicTrigger(t *testing.T) {
	e := reflection.NewEvaluator()
	eval := e.Evaluate(reflection.TriggerInputs{Snapshot: snapshot(5, 1, 4, 4)})
	if !eval.ShouldReflect || !eval.Fired(reflection.TriggerPeriodic) {
		t.Fatalf("expected periodic trigger at iteration 5, got %+v", eval)
	}
}

func TestEvaluator_DeepPeriodicTrigger(t *testing.T) {
	e := reflection.NewEvaluator()
	eval := e.Evaluate(reflection.TriggerInputs{Snapshot: snapshot(20, 1, 18, 18)})
	if !eval.Deep || !eval.Fired(reflection.TriggerDeepPeriodic) {
		t.Fatalf("expected deep periodic trigger at iteration 20, got %+v", eval)
	}
}

func TestEvaluator_LowConfidenceTrigger(t *testing.T) {
	e := reflection.NewEvaluator()
	eval := e.Evaluate(reflection.TriggerInputs{Snapshot: snapshot(3, 1, 1, 1), LastConfidence: 0.2})
	if !eval.Fired(reflection.TriggerLowConfidence) {
		t.Fatalf("expected low_confidence trigger, got %+v", eval)
	}
}

func TestEvaluator_PoorPerformanceTrigger(t *testing.T) {
	e := reflection.NewEvaluator()
	eval := e.Evaluate(reflection.TriggerInputs{Snapshot: snapshot(3, 1, 10, 1)})
	if !eval.Fired(reflection.TriggerPoorPerformance) {
		t.Fatalf("expected poor_performance trigger, got %+v", eval)
	}
}

func TestEvaluator_NoTriggerOnHealthyRun(t *testing.T) {
	e := reflection.NewEvaluator()
	eval := e.Evaluate(reflection.TriggerInputs{Snapshot: snapshot(3, 1, 3, 3), LastConfidence: 0.9})
	if eval.ShouldReflect {
		t.Fatalf("expected no trigger on a healthy run, got %+v", eval)
	}
}

func TestEngine_ReflectProposesAdjustmentOnPoorPerformance(t *testing.T) {
	eng := reflection.NewEngine()
	goal, err := goalmodel.NewGoal("do something", goalmodel.GoalAnalysis, goalmodel.PriorityMedium, []string{"done"})
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}
	ctxState := goalmodel.NewExecutionContext(goal)

	trig := reflection.TriggerEvaluation{ShouldReflect: true, Triggers: []reflection.Trigger{reflection.TriggerPoorPerformance}}
	result := eng.Reflect(ctxState, trig, 0.5)

	if len(result.Adjustments) != 1 {
		t.Fatalf("len(adjustments) = %d, want 1", len(result.Adjustments))
	}
	if result.Adjustments[0].Kind != goalmodel.AdjustReduceScope {
		t.Errorf("adjustment kind = %q, want reduce_scope", result.Adjustments[0].Kind)
	}
}

func TestEngine_ReflectAvoidsRetryingSameAdjustment(t *testing.T) {
	eng := reflection.NewEngine()
	goal, err := goalmodel.NewGoal("do something", goalmodel.GoalAnalysis, goalmodel.PriorityMedium, []string{"done"})
	if err != nil {
		t.Fatalf("NewGoal: %v", err)
	}
	ctxState := goalmodel.NewExecutionContext(goal)
	ctxState.ApplyAdjustment(goalmodel.StrategyAdjustment{Kind: goalmodel.AdjustReduceScope, ExpectedImpact: 0.6})

	trig := reflection.TriggerEvaluation{
		ShouldReflect: true,
		Triggers:      []reflection.Trigger{reflection.TriggerPoorPerformance, reflection.TriggerLowConfidence},
	}
	result := eng.Reflect(ctxState, trig, 0.5)

	if len(result.Adjustments) != 1 {
		t.Fatalf("len(adjustments) = %d, want 1", len(result.Adjustments))
	}
	if result.Adjustments[0].Kind == goalmodel.AdjustReduceScope {
		t.Errorf("expected an untried adjustment kind, got %q again", result.Adjustments[0].Kind)
	}
}

func TestGenerateInsights_DiscardsSmallDeltas(t *testing.T) {
	progress := goalmodel.ProgressAssessment{QualityAccuracy: 0.9}
	insights := reflection.GenerateInsights(0.50, 0.51, progress)
	if len(insights) != 0 {
		t.Fatalf("expected no insight for a delta below the threshold, got %+v", insights)
	}
}

func TestGenerateInsights_EmitsOnLargeDelta(t *testing.T) {
	progress := goalmodel.ProgressAssessment{QualityAccuracy: 0.9}
	insights := reflection.GenerateInsights(0.30, 0.70, progress)
	if len(insights) == 0 {
		t.Fatalf("expected an insight for a large delta, got none")
	}
	if insights[0].Importance < reflection.InsightMinImportance {
		t.Errorf("importance = %v, want >= %v", insights[0].Importance, reflection.InsightMinImportance)
	}
}
