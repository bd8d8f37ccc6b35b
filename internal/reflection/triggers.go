package reflection

import "github.com/pocketomega/axon/internal/goalmodel"

// TriggerInputs is everything the trigger evaluator needs for one
// iteration's decision, gathered by the orchestrator from the
// ExecutionContext and the most recent reasoning/planning results.
type TriggerInputs struct {
	Snapshot              goalmodel.Snapshot
	LastConfidence        float64
	RecentObservations    []goalmodel.Observation
	PlanningCycleDetected bool
	UserRequested         bool
}

// Evaluator decides whether the current iteration should trigger a
// reflection cycle, grounded on
// original_source/.../reflection/analysis.rs's BottleneckDetector
// (failure-rate threshold) generalized into a set of triggers,
// and on the teacher's loop_detector.go/cost_guard.go idiom of small
// single-purpose guards the decision loop consults each step.
type Evaluator struct {
	Window                   int
	PeriodicEvery            int
	DeepPeriodicEvery        int
	LowConfidenceThreshold   float64
	PoorPerformanceThreshold float64
}

// NewEvaluator builds an Evaluator with the package defaults: periodic
// every DefaultWindow iterations, a deep pass every 4th periodic trigger.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Window:                   DefaultWindow,
		PeriodicEvery:            DefaultWindow,
		DeepPeriodicEvery:        DefaultWindow * 4,
		LowConfidenceThreshold:   0.4,
		PoorPerformanceThreshold: 0.4,
	}
}

// Evaluate checks every trigger condition for the current iteration.
// Multiple triggers may fire in the same iteration; ShouldReflect is true
// if any did, and Deep is true if the deep-periodic trigger, a critical
// error, or a planning deadlock fired (conditions worth a more expensive
// reflection pass).
func (e *Evaluator) Evaluate(in TriggerInputs) TriggerEvaluation {
	var out TriggerEvaluation

	iter := in.Snapshot.IterationCount
	if e.PeriodicEvery > 0 && iter > 0 && iter%e.PeriodicEvery == 0 {
		out.Triggers = append(out.Triggers, TriggerPeriodic)
	}
	if e.DeepPeriodicEvery > 0 && iter > 0 && iter%e.DeepPeriodicEvery == 0 {
		out.Triggers = append(out.Triggers, TriggerDeepPeriodic)
		out.Deep = true
	}
	if in.LastConfidence > 0 && in.LastConfidence < e.LowConfidenceThreshold {
		out.Triggers = append(out.Triggers, TriggerLowConfidence)
	}
	if rate, ok := successRate(in.Snapshot); ok && rate < e.PoorPerformanceThreshold {
		out.Triggers = append(out.Triggers, TriggerPoorPerformance)
	}
	if hasCriticalError(in.RecentObservations) {
		out.Triggers = append(out.Triggers, TriggerCriticalError)
		out.Deep = true
	}
	if in.PlanningCycleDetected {
		out.Triggers = append(out.Triggers, TriggerPlanningDeadlock)
		out.Deep = true
	}
	if in.UserRequested {
		out.Triggers = append(out.Triggers, TriggerUserRequest)
	}

	out.ShouldReflect = len(out.Triggers) > 0
	return out
}

func successRate(s goalmodel.Snapshot) (float64, bool) {
	if s.CompletedCount == 0 {
		return 0, false
	}
	return float64(s.SuccessfulCount) / float64(s.CompletedCount), true
}

func hasCriticalError(observations []goalmodel.Observation) bool {
	for _, o := range observations {
		if o.Kind == goalmodel.ObservationError {
			return true
		}
	}
	return false
}
