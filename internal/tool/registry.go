package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pocketomega/axon/internal/engine"
)

// Stats is one tool's running execution statistics, per spec.md §4.7:
// total executions, successes, average/min/max duration, error rate.
// Exposed via Registry.Stats/StatsFor.
type Stats struct {
	Executions  int
	Successes   int
	TotalTime   time.Duration
	MinTime     time.Duration
	MaxTime     time.Duration
}

// AvgTime returns the mean execution duration, or 0 if the tool has never run.
func (s Stats) AvgTime() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Executions)
}

// ErrorRate returns the fraction of executions that did not succeed, in [0,1].
func (s Stats) ErrorRate() float64 {
	if s.Executions == 0 {
		return 0
	}
	return float64(s.Executions-s.Successes) / float64(s.Executions)
}

// Registry manages all registered tools with thread-safe access.
//
// A Registry can be either a "root" registry (parent == nil) that owns its
// tools map, or a "view" registry (parent != nil) created by WithExtra that
// overlays additional tools on top of a parent. Views delegate Get/List to
// the parent, so changes to the parent (Register/Unregister) are immediately
// visible through the view. A holder of a view therefore sees the tools
// that mcp_reload registers on or unregisters from the root registry.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	parent *Registry // non-nil → view mode; tools map holds extras only

	statsMu sync.Mutex
	stats   map[string]Stats
}

// NewRegistry creates an empty root tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		stats: make(map[string]Stats),
	}
}

// RecordExecution folds one tool execution's outcome into that tool's
// running Stats. Views record into their own table; StatsFor looks
// through to the parent for a tool a view has not recorded itself, while
// Stats reports this level's table only.
func (r *Registry) RecordExecution(name string, d time.Duration, success bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	if r.stats == nil {
		r.stats = make(map[string]Stats)
	}
	s := r.stats[name]
	s.Executions++
	if success {
		s.Successes++
	}
	s.TotalTime += d
	if s.MinTime == 0 || d < s.MinTime {
		s.MinTime = d
	}
	if d > s.MaxTime {
		s.MaxTime = d
	}
	r.stats[name] = s
}

// StatsFor returns the running statistics for one named tool.
func (r *Registry) StatsFor(name string) Stats {
	r.statsMu.Lock()
	s, ok := r.stats[name]
	r.statsMu.Unlock()
	if ok {
		return s
	}
	if r.parent != nil {
		return r.parent.StatsFor(name)
	}
	return Stats{}
}

// Stats returns a snapshot of every tool's statistics recorded at this
// level, keyed by tool name.
func (r *Registry) Stats() map[string]Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	out := make(map[string]Stats, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// Register adds a tool to the registry. If a tool with the same name already
// exists, it is overwritten and a warning is logged.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		log.Printf("[Registry] WARNING: overwriting existing tool %q", t.Name())
	}
	r.tools[t.Name()] = t
}

// Unregister removes a tool from the registry (for hot-reload).
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	log.Printf("[Registry] Unregistered tool: %s", name)
}

// Get retrieves a tool by name.
// For view registries: checks extras first, then delegates to parent.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, false
}

// List returns all registered tools sorted by name.
// For view registries: merges parent tools with extras (extras override parent).
func (r *Registry) List() []Tool {
	if r.parent != nil {
		return r.listView()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// listView merges parent tools with this view's extras.
// Extras take precedence over parent tools with the same name.
func (r *Registry) listView() []Tool {
	parentTools := r.parent.List()

	r.mu.RLock()
	extras := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		extras[k] = v
	}
	r.mu.RUnlock()

	// Build merged list: parent tools (excluding overridden) + extras
	result := make([]Tool, 0, len(parentTools)+len(extras))
	for _, t := range parentTools {
		if _, overridden := extras[t.Name()]; !overridden {
			result = append(result, t)
		}
	}
	for _, t := range extras {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// GenerateToolsPrompt creates a detailed description of all tools
// including their parameter schemas for injection into LLM prompts.
func (r *Registry) GenerateToolsPrompt() string {
	tools := r.List()
	if len(tools) == 0 {
		return "（无可用工具）"
	}

	var sb strings.Builder
	sb.WriteString("可用工具：\n")
	for _, t := range tools {
		sb.WriteString(fmt.Sprintf("\n### %s\n%s\n", t.Name(), t.Description()))
		schema := t.InputSchema()
		if len(schema) > 0 {
			sb.WriteString(fmt.Sprintf("参数 Schema: %s\n", string(schema)))
		}
	}
	return sb.String()
}

// GenerateToolDefinitions creates FC-compatible (function-calling) tool
// definitions; GenerateToolsPrompt is the plain-text counterpart.
func (r *Registry) GenerateToolDefinitions() []engine.ToolDefinition {
	tools := r.List()
	defs := make([]engine.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = engine.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		}
	}
	return defs
}

// InitAll initializes all registered tools.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("init tool %q: %w", name, err)
		}
	}
	log.Printf("[Registry] Initialized %d tools", len(r.tools))
	return nil
}

// CloseAll closes all registered tools, logging errors but not failing.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Close(); err != nil {
			log.Printf("[Registry] Error closing tool %s: %v", name, err)
		}
	}
}

// WithExtra returns a view of this Registry with additional tools overlaid.
// Used for per-request tool injection.
//
// The returned Registry delegates Get/List to the parent, so changes to the
// parent (via Register/Unregister) are immediately visible through the view.
// Extras take precedence over parent tools with the same name.
//
// Can be chained: root.WithExtra(a).WithExtra(b) creates a view chain where
// lookups check b's extras → a's extras → root's tools.
func (r *Registry) WithExtra(extras ...Tool) *Registry {
	extrasMap := make(map[string]Tool, len(extras))
	for _, t := range extras {
		extrasMap[t.Name()] = t
	}
	return &Registry{
		parent: r,
		tools:  extrasMap,
	}
}
