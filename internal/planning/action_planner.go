package planning

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// toolKeywords maps a crude keyword found in a task description to the
// builtin tool name it most likely needs and the risk that tool carries,
// per spec.md §4.7's tool catalogue. Order matters: the first match wins.
var toolKeywords = []struct {
	keyword  string
	toolName string
	kind     goalmodel.ActionKind
	risk     goalmodel.Risk
}{
	{"replace", "string_replace_editor", goalmodel.ActionToolCall, goalmodel.RiskMedium},
	{"edit", "string_replace_editor", goalmodel.ActionToolCall, goalmodel.RiskMedium},
	{"delete", "file_delete", goalmodel.ActionFileOperation, goalmodel.RiskHigh},
	{"move", "file_move", goalmodel.ActionFileOperation, goalmodel.RiskMedium},
	{"write", "file_write", goalmodel.ActionFileOperation, goalmodel.RiskMedium},
	{"read", "file_read", goalmodel.ActionFileOperation, goalmodel.RiskLow},
	{"list", "file_list", goalmodel.ActionFileOperation, goalmodel.RiskLow},
	{"search", "file_grep", goalmodel.ActionToolCall, goalmodel.RiskLow},
	{"run", "shell_command", goalmodel.ActionShellCommand, goalmodel.RiskHigh},
	{"execute", "shell_command", goalmodel.ActionShellCommand, goalmodel.RiskHigh},
	{"test", "shell_command", goalmodel.ActionShellCommand, goalmodel.RiskHigh},
	{"compile", "shell_command", goalmodel.ActionShellCommand, goalmodel.RiskHigh},
	{"recall", "memory_query", goalmodel.ActionMemoryQuery, goalmodel.RiskLow},
	{"remember", "memory_query", goalmodel.ActionMemoryQuery, goalmodel.RiskLow},
}

// ActionPlanner turns one goalmodel.Task into a goalmodel.ActionPlan: a
// single action whose tool and risk are inferred from the task's
// description, falling back to a plain model_call when nothing in the
// catalogue matches.
type ActionPlanner struct{}

// NewActionPlanner builds an ActionPlanner.
func NewActionPlanner() *ActionPlanner { return &ActionPlanner{} }

// Plan produces an ActionPlan for task.
func (p *ActionPlanner) Plan(task *goalmodel.Task) *goalmodel.ActionPlan {
	lower := strings.ToLower(task.Description)

	action := goalmodel.Action{
		ID:         uuid.NewString(),
		Kind:       goalmodel.ActionModelCall,
		Risk:       goalmodel.RiskLow,
		Parameters: map[string]any{"task_id": task.ID, "description": task.Description},
	}
	for _, kw := range toolKeywords {
		if strings.Contains(lower, kw.keyword) {
			action.Kind = kw.kind
			action.ToolName = kw.toolName
			action.Risk = kw.risk
			break
		}
	}
	if task.EstimatedDuration != nil {
		action.EstimatedDuration = *task.EstimatedDuration
	}

	return &goalmodel.ActionPlan{TaskID: task.ID, Actions: []goalmodel.Action{action}}
}

// PlanAll produces one ActionPlan per task, preserving order.
func (p *ActionPlanner) PlanAll(tasks []*goalmodel.Task) []*goalmodel.ActionPlan {
	plans := make([]*goalmodel.ActionPlan, len(tasks))
	for i, t := range tasks {
		plans[i] = p.Plan(t)
	}
	return plans
}
