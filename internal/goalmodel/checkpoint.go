package goalmodel

// PipelineState is a checkpoint: a durable snapshot of orchestrator state
// keyed by run-id, created at checkpoint boundaries and loaded on resume.
type PipelineState struct {
	RunID         string
	CurrentStep   int
	Data          map[string]any
	StartTimeUnix int64
}
