package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
)

// DefaultDecomposeTimeout bounds a single decomposition model call.
const DefaultDecomposeTimeout = 45 * time.Second

// htnNodeKind distinguishes a task that needs further decomposition from
// one ready to execute, mirroring
// hierarchical_task_networks.rs's TaskType::{Compound,Primitive}. This is
// an HTN-internal concept; only the primitive leaves become
// goalmodel.Task values the rest of the system sees.
type htnNodeKind int

const (
	htnCompound htnNodeKind = iota
	htnPrimitive
)

type htnNode struct {
	id          string
	description string
	kind        htnNodeKind
	parentID    string
	depth       int
}

// Decomposer recursively breaks a Goal down into 3-5 concrete subtasks per
// compound node, stopping at DefaultMaxDepth or when a node is returned as
// primitive, grounded on
// hierarchical_task_networks.rs's decompose_tasks/decompose_task/parse_subtasks.
type Decomposer struct {
	model    engine.ModelEngine
	maxDepth int
}

// NewDecomposer builds a Decomposer bounded to DefaultMaxDepth.
func NewDecomposer(model engine.ModelEngine) *Decomposer {
	return &Decomposer{model: model, maxDepth: DefaultMaxDepth}
}

// Decompose expands goal into a flat list of primitive goalmodel.Task
// values ready for dependency analysis. Each task's Rationale records why
// it was left primitive (its place in the decomposition tree).
func (d *Decomposer) Decompose(ctx context.Context, goal *goalmodel.Goal) ([]*goalmodel.Task, error) {
	root := htnNode{id: uuid.NewString(), description: goal.Description, kind: htnCompound, depth: 0}

	var primitives []*goalmodel.Task
	stack := []htnNode{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.kind == htnPrimitive || n.depth >= d.maxDepth {
			primitives = append(primitives, toTask(n, goal.Priority))
			continue
		}

		children, err := d.decomposeOne(ctx, n)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			// Model returned nothing usable; treat the node itself as
			// primitive rather than dropping the work it represents.
			primitives = append(primitives, toTask(n, goal.Priority))
			continue
		}
		for _, c := range children {
			stack = append(stack, c)
		}
	}
	return primitives, nil
}

func toTask(n htnNode, priority goalmodel.Priority) *goalmodel.Task {
	rationale := fmt.Sprintf("leaf at depth %d", n.depth)
	if n.parentID != "" {
		rationale = fmt.Sprintf("decomposed from parent %s at depth %d", n.parentID, n.depth)
	}
	return &goalmodel.Task{
		ID:              n.id,
		Description:     n.description,
		Kind:            goalmodel.TaskOther,
		Priority:        priority,
		Status:          goalmodel.TaskPending,
		MaxAttempts:     3,
		CreatedAt:       time.Now(),
		Metadata:        map[string]string{},
		Rationale:       rationale,
	}
}

func (d *Decomposer) decomposeOne(ctx context.Context, n htnNode) ([]htnNode, error) {
	callCtx, cancel := context.WithTimeout(ctx, DefaultDecomposeTimeout)
	defer cancel()

	req := engine.Request{
		Messages: []engine.Message{
			{Role: engine.RoleSystem, Content: decomposeSystemPrompt()},
			{Role: engine.RoleUser, Content: fmt.Sprintf("Task: %s\nDepth: %d\n", n.description, n.depth)},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	}

	resp, err := d.model.Execute(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, agenterr.Wrap(agenterr.KindTimeout, "planning: decompose task", err)
		}
		return nil, agenterr.Wrap(agenterr.KindInternal, "planning: decompose task", err)
	}
	return parseSubtasks(resp.Content, n), nil
}

func decomposeSystemPrompt() string {
	return strings.TrimSpace(`
Break the given task down into 3 to 5 concrete subtasks. Format each
subtask on its own lines exactly as:

SUBTASK: <description>
TYPE: <primitive|compound>

Use "compound" only when a subtask itself needs further breakdown before
it is directly executable. Emit nothing else.
`)
}

// parseSubtasks mirrors hierarchical_task_networks.rs's parse_subtasks:
// a SUBTASK: line starts a new entry, TYPE: compound upgrades the most
// recent entry, anything else is ignored.
func parseSubtasks(response string, parent htnNode) []htnNode {
	var out []htnNode
	var current *htnNode

	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SUBTASK:"):
			flush()
			desc := strings.TrimSpace(strings.TrimPrefix(line, "SUBTASK:"))
			if desc == "" {
				continue
			}
			current = &htnNode{
				id:          uuid.NewString(),
				description: desc,
				kind:        htnPrimitive,
				parentID:    parent.id,
				depth:       parent.depth + 1,
			}
		case strings.HasPrefix(line, "TYPE:") && strings.Contains(strings.ToLower(line), "compound"):
			if current != nil {
				current.kind = htnCompound
			}
		}
	}
	flush()
	return out
}
