package reflection

import (
	"fmt"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// GenerateInsights compares the previous and current overall performance
// scores and emits a LearningInsight scaled to the magnitude of the
// change, per spec.md §4.4 ("importance proportional to |post-pre| score
// delta, discarded if <0.2"). prevPerformance of -1 means no prior
// reflection exists yet (first cycle), in which case no delta-based
// insight is produced.
func GenerateInsights(prevPerformance, currPerformance float64, progress goalmodel.ProgressAssessment) []goalmodel.LearningInsight {
	var insights []goalmodel.LearningInsight

	if prevPerformance >= 0 {
		delta := currPerformance - prevPerformance
		importance := abs(delta)
		if importance >= InsightMinImportance {
			direction := "improved"
			if delta < 0 {
				direction = "regressed"
			}
			insights = append(insights, goalmodel.LearningInsight{
				Summary:    fmt.Sprintf("performance %s by %.2f since the last reflection", direction, importance),
				Importance: clamp01(importance),
			})
		}
	}

	if progress.QualityAccuracy < 0.3 {
		insights = append(insights, goalmodel.LearningInsight{
			Summary:    "task success rate is low; recent failures should inform the next decomposition",
			Importance: clamp01(1 - progress.QualityAccuracy),
		})
	}

	return insights
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
