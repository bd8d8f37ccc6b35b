package reflection

import "github.com/pocketomega/axon/internal/goalmodel"

// candidate is a proposed adjustment before tie-breaking picks a winner.
type candidate struct {
	kind           goalmodel.AdjustmentKind
	steps          []string
	expectedImpact float64
}

// proposeCandidates maps fired triggers and the current progress
// assessment onto a candidate adjustment list, mirroring
// analysis.rs's BottleneckDetector.suggested_solutions but emitting the
// runtime's own typed AdjustmentKind set instead of free text.
func proposeCandidates(trig TriggerEvaluation, progress goalmodel.ProgressAssessment) []candidate {
	var candidates []candidate

	if trig.Fired(TriggerPoorPerformance) || progress.QualityAccuracy < 0.4 {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustReduceScope,
			steps:          []string{"narrow the current task to its minimal viable subset"},
			expectedImpact: 0.6,
		})
	}
	if trig.Fired(TriggerLowConfidence) {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustDecomposeFurther,
			steps:          []string{"break the active task into smaller, more verifiable subtasks"},
			expectedImpact: 0.55,
		})
	}
	if trig.Fired(TriggerPlanningDeadlock) {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustDecomposeFurther,
			steps:          []string{"re-decompose the task set to break the dependency cycle"},
			expectedImpact: 0.7,
		})
	}
	if progress.StrategyConsistency < 0.5 {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustSwitchTool,
			steps:          []string{"try an alternative tool for the failing action"},
			expectedImpact: 0.5,
		})
	}
	if trig.Fired(TriggerCriticalError) {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustRollback,
			steps:          []string{"restore the last checkpoint before the critical error"},
			expectedImpact: 0.8,
		})
	}
	if progress.TimeEfficiency < 0.2 && progress.GoalCompletion < 0.1 {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustIncreaseRetries,
			steps:          []string{"allow additional attempts before declaring the task failed"},
			expectedImpact: 0.3,
		})
	}
	if OverallScore(progress) < 0.15 {
		candidates = append(candidates, candidate{
			kind:           goalmodel.AdjustAbort,
			steps:          []string{"stop: no viable path to goal completion has been found"},
			expectedImpact: 0.9,
		})
	}
	return candidates
}

// ProposeAdjustment selects a single winning adjustment by the tie-break
// rule from spec.md §4.4: the highest expected-impact candidate not yet
// tried this run wins; if every candidate kind has already been tried, the
// highest-impact candidate wins anyway rather than emitting nothing.
// Runner-up candidates are returned as Recommendations.
func ProposeAdjustment(trig TriggerEvaluation, progress goalmodel.ProgressAssessment, alreadyTried map[goalmodel.AdjustmentKind]bool) (*goalmodel.StrategyAdjustment, []goalmodel.Recommendation) {
	candidates := proposeCandidates(trig, progress)
	if len(candidates) == 0 {
		return nil, nil
	}

	winnerIdx := -1
	for i, c := range candidates {
		if alreadyTried[c.kind] {
			continue
		}
		if winnerIdx == -1 || c.expectedImpact > candidates[winnerIdx].expectedImpact {
			winnerIdx = i
		}
	}
	if winnerIdx == -1 {
		for i, c := range candidates {
			if winnerIdx == -1 || c.expectedImpact > candidates[winnerIdx].expectedImpact {
				winnerIdx = i
			}
		}
	}

	var recs []goalmodel.Recommendation
	for i, c := range candidates {
		if i == winnerIdx {
			continue
		}
		for _, s := range c.steps {
			recs = append(recs, goalmodel.Recommendation{Summary: s})
		}
	}

	winner := candidates[winnerIdx]
	adj := &goalmodel.StrategyAdjustment{
		Kind:                winner.kind,
		ImplementationSteps: winner.steps,
		ExpectedImpact:      winner.expectedImpact,
	}
	return adj, recs
}
