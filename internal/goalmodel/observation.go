package goalmodel

import "time"

// ObservationKind classifies a recorded effect of an action.
type ObservationKind string

const (
	ObservationToolResult  ObservationKind = "tool_result"
	ObservationSystemEvent ObservationKind = "system_event"
	ObservationModelOutput ObservationKind = "model_output"
	ObservationError       ObservationKind = "error"
)

// Observation is an append-only record of an action's effect within a
// context. Sequence is a per-action monotonic number assigned by the
// ExecutionContext so reflection can reconstruct action/observation
// pairings even though observations may arrive out of order across
// concurrent actions.
type Observation struct {
	ID        string
	Timestamp time.Time
	Kind      ObservationKind
	Content   string
	Source    string
	Relevance float64 // [0,1]
	Impact    string
	Sequence  uint64
}
