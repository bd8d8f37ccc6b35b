package orchestrator

import "github.com/pocketomega/axon/internal/goalmodel"

// checkpointOf captures enough of a runState to resume a run: the current
// phase index, iteration count, and each tracked task's status, keyed by
// task id. It deliberately does not serialize Observations or the full
// ExecutionContext — those grow unbounded over a long run and resume only
// needs to know where scheduling left off and what each task's last known
// status was.
func checkpointOf(rs *runState) goalmodel.PipelineState {
	data := make(map[string]any, len(rs.tasksByID)+1)
	for id, t := range rs.tasksByID {
		data[id] = string(t.Status)
	}
	data["iteration_count"] = rs.ctx.Snapshot().IterationCount
	return goalmodel.PipelineState{
		RunID:         rs.runID,
		CurrentStep:   rs.phaseIndex,
		Data:          data,
		StartTimeUnix: rs.ctx.StartTime.Unix(),
	}
}
