// Package reflection implements the ReflectionEngine from spec.md §4.4:
// trigger evaluation, the five scored sub-metrics,
// typed strategy adjustments, and learning-insight generation.
package reflection

// DefaultWindow sets the reflection cadence: the periodic trigger fires
// every DefaultWindow iterations and the deep-periodic trigger every
// 4×DefaultWindow. Evaluator.Window holds the same value, but no trigger
// reads it: poor-performance is judged on the success rate of every task
// completed so far in the run, not on a recent window.
const DefaultWindow = 5

// InsightMinImportance is the discard threshold from spec.md §4.4:
// insights with importance below this are not written to long-term
// memory.
const InsightMinImportance = 0.2

// Trigger is the closed set of conditions that can start a reflection
// cycle, per spec.md §4.4.
type Trigger string

const (
	TriggerPeriodic         Trigger = "periodic"
	TriggerDeepPeriodic     Trigger = "deep_periodic"
	TriggerLowConfidence    Trigger = "low_confidence"
	TriggerPoorPerformance  Trigger = "poor_performance"
	TriggerCriticalError    Trigger = "critical_error"
	TriggerUserRequest      Trigger = "user_request"
	TriggerPlanningDeadlock Trigger = "planning_deadlock"
)

// TriggerEvaluation is one outcome of checking the trigger conditions for
// the current iteration: whether reflection should run, which trigger(s)
// fired, and whether a "deep" (more expensive) reflection pass is called
// for instead of a shallow one.
type TriggerEvaluation struct {
	ShouldReflect bool
	Triggers      []Trigger
	Deep          bool
}

// Fired reports whether t is present among the evaluation's triggers.
func (e TriggerEvaluation) Fired(t Trigger) bool {
	for _, got := range e.Triggers {
		if got == t {
			return true
		}
	}
	return false
}
