package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
	"github.com/pocketomega/axon/internal/tool"
)

// MemoryQuerier is the subset of *memory.LongTermMemory this tool needs,
// kept narrow (same pattern as resource.MemoryStore) so internal/tool does
// not import internal/memory just to name a concrete type.
type MemoryQuerier interface {
	Query(ctx context.Context, q goalmodel.MemoryQuery) ([]goalmodel.MemoryItem, error)
}

// MemoryQueryTool is a thin wrapper over LongTermMemory.Query, per
// spec.md §4.7.
type MemoryQueryTool struct {
	store MemoryQuerier
}

// NewMemoryQueryTool builds the tool over store.
func NewMemoryQueryTool(store MemoryQuerier) *MemoryQueryTool {
	return &MemoryQueryTool{store: store}
}

func (t *MemoryQueryTool) Name() string        { return "memory_query" }
func (t *MemoryQueryTool) Description() string { return "Searches long-term memory by phrase, kind, tags, time range, and importance threshold." }

func (t *MemoryQueryTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "phrase", Type: "string", Description: "free-text phrase to match against summary/payload", Required: false},
		tool.SchemaParam{Name: "kinds", Type: "string", Description: "comma-separated MemoryKind filter (episode,fact,procedure,experience,learning)", Required: false},
		tool.SchemaParam{Name: "tags", Type: "string", Description: "comma-separated tag filter", Required: false},
		tool.SchemaParam{Name: "importance_threshold", Type: "number", Description: "minimum importance in [0,1]", Required: false},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "maximum results", Required: false},
	)
}

func (t *MemoryQueryTool) Init(_ context.Context) error { return nil }
func (t *MemoryQueryTool) Close() error                 { return nil }

type memoryQueryArgs struct {
	Phrase               string  `json:"phrase"`
	Kinds                string  `json:"kinds"`
	Tags                 string  `json:"tags"`
	ImportanceThreshold  *float64 `json:"importance_threshold"`
	Limit                int     `json:"limit"`
}

func (t *MemoryQueryTool) Execute(ctx context.Context, raw json.RawMessage) (tool.ToolResult, error) {
	var a memoryQueryArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	q := goalmodel.MemoryQuery{
		Phrase:              a.Phrase,
		ImportanceThreshold: a.ImportanceThreshold,
		Limit:               a.Limit,
	}
	if a.Kinds != "" {
		q.KindFilter = make(map[goalmodel.MemoryKind]struct{})
		for _, k := range splitCSV(a.Kinds) {
			q.KindFilter[goalmodel.MemoryKind(k)] = struct{}{}
		}
	}
	if a.Tags != "" {
		q.TagFilter = make(map[string]struct{})
		for _, tag := range splitCSV(a.Tags) {
			q.TagFilter[tag] = struct{}{}
		}
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	items, err := t.store.Query(deadlineCtx, q)
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("memory query: %v", err)}, nil
	}

	out, err := json.Marshal(items)
	if err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("marshal results: %v", err)}, nil
	}
	return tool.ToolResult{Output: string(out)}, nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
