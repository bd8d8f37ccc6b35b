package reflection

import (
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// Engine runs one reflection cycle at a time for a single orchestrator
// run. Unlike reasoning and planning, reflection in this runtime (as in
// analysis.rs) is pure computation over the ExecutionContext snapshot —
// no model call — so Engine carries no ModelEngine dependency.
type Engine struct {
	evaluator       *Evaluator
	prevPerformance float64 // -1 until the first completed cycle
}

// NewEngine builds a reflection Engine with default trigger thresholds.
func NewEngine() *Engine {
	return &Engine{evaluator: NewEvaluator(), prevPerformance: -1}
}

// Evaluator exposes the trigger evaluator so the orchestrator can call
// ShouldReflect() ahead of running a full cycle.
func (e *Engine) Evaluator() *Evaluator { return e.evaluator }

// Reflect scores progress, proposes at most one strategy adjustment, and
// generates learning insights for the current state of ctxState. It never
// mutates ctxState; the orchestrator's Adapting step is the only place
// ExecutionContext.ApplyAdjustment is called.
func (e *Engine) Reflect(ctxState *goalmodel.ExecutionContext, trig TriggerEvaluation, resourceUtilization float64) *goalmodel.ReflectionResult {
	snap := ctxState.Snapshot()
	elapsed := time.Since(ctxState.StartTime)

	progress := ScoreProgress(ScoringInputs{
		Snapshot:                snap,
		Elapsed:                 elapsed,
		StrategyAdjustmentCount: len(ctxState.StrategyAdjustments),
		ResourceUtilization:     resourceUtilization,
	})
	performance := OverallScore(progress)

	insights := GenerateInsights(e.prevPerformance, performance, progress)
	e.prevPerformance = performance

	alreadyTried := make(map[goalmodel.AdjustmentKind]bool, len(ctxState.StrategyAdjustments))
	for _, a := range ctxState.StrategyAdjustments {
		alreadyTried[a.Kind] = true
	}
	adjustment, recommendations := ProposeAdjustment(trig, progress, alreadyTried)

	var adjustments []goalmodel.StrategyAdjustment
	if adjustment != nil {
		adjustments = append(adjustments, *adjustment)
	}

	// Confidence in the assessment itself grows with the amount of
	// completed-task evidence behind it, independent of how well that
	// evidence says the run is going.
	dataConfidence := clamp01(float64(snap.CompletedCount) / 5.0)
	if dataConfidence < 0.3 {
		dataConfidence = 0.3
	}

	return &goalmodel.ReflectionResult{
		OverallConfidence: dataConfidence,
		Performance:       performance,
		Progress:          progress,
		Insights:          insights,
		Adjustments:       adjustments,
		Recommendations:   recommendations,
	}
}
