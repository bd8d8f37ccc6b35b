package goalmodel

import "time"

// TaskKind classifies a Task derived from a Goal by planning.
type TaskKind string

const (
	TaskCodeGeneration TaskKind = "code_generation"
	TaskCodeAnalysis   TaskKind = "code_analysis"
	TaskTesting        TaskKind = "testing"
	TaskFileOperation  TaskKind = "file_operation"
	TaskPlanning       TaskKind = "planning"
	TaskResearch       TaskKind = "research"
	TaskToolUse        TaskKind = "tool_use"
	TaskOther          TaskKind = "other"
)

// TaskStatus is the lifecycle state of a Task: Pending -> Ready (deps
// satisfied) -> InProgress -> (Complete | Failed); Failed may re-enter
// Pending if CurrentAttempt < MaxAttempts.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskReady      TaskStatus = "ready"
	TaskInProgress TaskStatus = "in_progress"
	TaskComplete   TaskStatus = "complete"
	TaskFailed     TaskStatus = "failed"
)

// SuccessState is a tri-state flag: unknown until the task resolves.
type SuccessState int

const (
	SuccessUnknown SuccessState = iota
	SuccessTrue
	SuccessFalse
)

// Task is a unit of work derived from a Goal by planning/decomposition.
// Ids are stable across retries; tasks are owned by the ExecutionContext
// for their lifetime.
type Task struct {
	ID               string
	Description      string
	Kind             TaskKind
	Priority         Priority
	Status           TaskStatus
	DependencyIDs    []string
	Inputs           map[string]any
	ExpectedOutputs  []string
	SuccessCriteria  []string
	EstimatedDuration *time.Duration
	MaxAttempts      int
	CurrentAttempt   int
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	Success          SuccessState
	Error            string
	Metadata         map[string]string

	// Rationale records why a task was left primitive (not decomposed
	// further) during HTN planning, or why it was decomposed a particular
	// way. Empty for the root goal task.
	Rationale string
}

// CanRetry reports whether a Failed task may re-enter Pending.
func (t *Task) CanRetry() bool {
	return t.Status == TaskFailed && t.CurrentAttempt < t.MaxAttempts
}

// MarkInProgress transitions the task and stamps StartedAt on first entry.
func (t *Task) MarkInProgress() {
	t.Status = TaskInProgress
	if t.StartedAt == nil {
		now := time.Now()
		t.StartedAt = &now
	}
	t.CurrentAttempt++
}

// MarkComplete transitions the task to Complete with success=true.
func (t *Task) MarkComplete() {
	t.Status = TaskComplete
	t.Success = SuccessTrue
	now := time.Now()
	t.CompletedAt = &now
}

// MarkFailed transitions the task to Failed, recording the error. If
// retries remain the task is reset to Pending by the caller via CanRetry.
func (t *Task) MarkFailed(err string) {
	t.Status = TaskFailed
	t.Success = SuccessFalse
	t.Error = err
}
