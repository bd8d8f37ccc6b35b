package reflection

import (
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// ScoringInputs is everything ScoreProgress needs, gathered by the
// orchestrator from the ExecutionContext plus the resource monitor's
// latest sample.
type ScoringInputs struct {
	Snapshot                goalmodel.Snapshot
	Elapsed                 time.Duration
	StrategyAdjustmentCount int
	ResourceUtilization     float64 // [0,1]; 0 if unavailable
}

// ScoreProgress computes the five sub-metrics from spec.md §4.4, grounded
// on analysis.rs's ProgressAnalyzer.assess_quality_metrics and
// StrategyEvaluator.calculate_strategy_consistency: goal completion is the
// share of tracked (active plus completed) tasks that are completed,
// quality/accuracy the share of completed tasks that succeeded, time
// efficiency from completed
// tasks per unit time capped at 1, strategy consistency from the inverse
// adjustment rate, and resource utilization passed through from the
// caller's resource sample.
func ScoreProgress(in ScoringInputs) goalmodel.ProgressAssessment {
	total := in.Snapshot.ActiveCount + in.Snapshot.CompletedCount

	var goalCompletion float64
	if total > 0 {
		goalCompletion = float64(in.Snapshot.CompletedCount) / float64(total)
	}

	var accuracy float64
	if in.Snapshot.CompletedCount > 0 {
		accuracy = float64(in.Snapshot.SuccessfulCount) / float64(in.Snapshot.CompletedCount)
	}

	timeEfficiency := 0.5
	if in.Elapsed > 0 && in.Snapshot.CompletedCount > 0 {
		perMinute := float64(in.Snapshot.CompletedCount) / in.Elapsed.Minutes()
		timeEfficiency = clamp01(perMinute)
	}

	strategyConsistency := 1.0
	if in.Snapshot.IterationCount > 0 {
		rate := float64(in.StrategyAdjustmentCount) / float64(in.Snapshot.IterationCount)
		strategyConsistency = clamp01(1 - rate)
	}

	return goalmodel.ProgressAssessment{
		GoalCompletion:      clamp01(goalCompletion),
		TimeEfficiency:      timeEfficiency,
		QualityAccuracy:     clamp01(accuracy),
		StrategyConsistency: strategyConsistency,
		ResourceUtilization: clamp01(in.ResourceUtilization),
	}
}

// OverallScore weights the five sub-metrics into one performance number in
// [0,1], favoring goal completion and quality as the Rust original's
// calculate_strategy_score weighted success_rate at 0.7 of the total.
func OverallScore(p goalmodel.ProgressAssessment) float64 {
	return clamp01(
		0.35*p.GoalCompletion +
			0.25*p.QualityAccuracy +
			0.15*p.TimeEfficiency +
			0.15*p.StrategyConsistency +
			0.10*p.ResourceUtilization,
	)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
