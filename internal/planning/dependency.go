package planning

import (
	"sort"
	"time"

	"github.com/pocketomega/axon/internal/goalmodel"
)

// Analyzer builds a dependency DAG over a task set and schedules it,
// grounded in the shape original_source/crates/fluent-agent/src/planning/mod.rs
// describes for its DependencyAnalyzer (ParallelGroup, ScheduledTask,
// Bottleneck) — the analyzer's own source file was not retrieved, so the
// algorithm here (Kahn's topological scheduling, longest-duration critical
// path, fan-in bottleneck ranking) is this package's own implementation of
// that shape rather than a port.
type Analyzer struct {
	BottleneckTopK int
}

// NewAnalyzer builds an Analyzer with DefaultBottleneckTopK.
func NewAnalyzer() *Analyzer {
	return &Analyzer{BottleneckTopK: DefaultBottleneckTopK}
}

// Analyze builds the dependency graph (explicit DependencyIDs plus edges
// inferred from Inputs referencing another task's ExpectedOutputs),
// schedules it with Kahn's algorithm into sequential phases of parallel
// groups, and reports the critical path and top bottleneck tasks.
func (a *Analyzer) Analyze(tasks []*goalmodel.Task) (*ExecutionPlan, error) {
	byID := make(map[string]*goalmodel.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	deps := buildDependencyEdges(tasks, byID)
	order, err := kahnSchedule(tasks, deps)
	if err != nil {
		return nil, err
	}

	phases := make([]ExecutionPhase, len(order))
	var parallelGroups []ParallelGroup
	var total time.Duration
	for i, group := range order {
		d := longestDurationIn(group, byID)
		phases[i] = ExecutionPhase{Tasks: group, Duration: d}
		total += d
		if len(group) > 1 {
			parallelGroups = append(parallelGroups, ParallelGroup{TaskIDs: group})
		}
	}

	critical := criticalPath(tasks, deps, byID)
	bottlenecks := topBottlenecks(tasks, deps, critical, a.BottleneckTopK)

	return &ExecutionPlan{
		Phases:         phases,
		ParallelGroups: parallelGroups,
		CriticalPath:   critical,
		Bottlenecks:    bottlenecks,
		TotalDuration:  total,
	}, nil
}

// buildDependencyEdges returns, for each task id, the set of task ids it
// depends on: its explicit DependencyIDs plus any task whose
// ExpectedOutputs name matches a value in this task's Inputs.
func buildDependencyEdges(tasks []*goalmodel.Task, byID map[string]*goalmodel.Task) map[string][]string {
	producesOutput := make(map[string]string, len(tasks)) // output name -> producing task id
	for _, t := range tasks {
		for _, out := range t.ExpectedOutputs {
			producesOutput[out] = t.ID
		}
	}

	edges := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		seen := make(map[string]bool, len(t.DependencyIDs))
		var deps []string
		for _, d := range t.DependencyIDs {
			if _, ok := byID[d]; ok && !seen[d] {
				deps = append(deps, d)
				seen[d] = true
			}
		}
		for _, v := range t.Inputs {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if producer, ok := producesOutput[s]; ok && producer != t.ID && !seen[producer] {
				deps = append(deps, producer)
				seen[producer] = true
			}
		}
		edges[t.ID] = deps
	}
	return edges
}

// kahnSchedule performs Kahn's algorithm, grouping each round's
// zero-in-degree tasks into one parallel-eligible phase. Ties within a
// round are broken by priority rank (high first), then by declared
// duration (short first), for deterministic output.
func kahnSchedule(tasks []*goalmodel.Task, deps map[string][]string) ([][]string, error) {
	byID := make(map[string]*goalmodel.Task, len(tasks))
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for _, t := range tasks {
		byID[t.ID] = t
		indegree[t.ID] = len(deps[t.ID])
	}
	for id, ds := range deps {
		for _, d := range ds {
			dependents[d] = append(dependents[d], id)
		}
	}

	var phases [][]string
	scheduled := make(map[string]bool, len(tasks))

	for len(scheduled) < len(tasks) {
		var ready []string
		for _, t := range tasks {
			if scheduled[t.ID] || indegree[t.ID] > 0 {
				continue
			}
			ready = append(ready, t.ID)
		}
		if len(ready) == 0 {
			var stuck []string
			for _, t := range tasks {
				if !scheduled[t.ID] {
					stuck = append(stuck, t.ID)
				}
			}
			return nil, &PlanningCycleError{TaskIDs: stuck}
		}

		sort.Slice(ready, func(i, j int) bool {
			ti, tj := byID[ready[i]], byID[ready[j]]
			if ti.Priority.Rank() != tj.Priority.Rank() {
				return ti.Priority.Rank() > tj.Priority.Rank()
			}
			return durationOf(ti) < durationOf(tj)
		})

		for _, id := range ready {
			scheduled[id] = true
			for _, dep := range dependents[id] {
				indegree[dep]--
			}
		}
		phases = append(phases, ready)
	}
	return phases, nil
}

func durationOf(t *goalmodel.Task) time.Duration {
	if t.EstimatedDuration != nil {
		return *t.EstimatedDuration
	}
	return 5 * time.Minute
}

func longestDurationIn(ids []string, byID map[string]*goalmodel.Task) time.Duration {
	var max time.Duration
	for _, id := range ids {
		if d := durationOf(byID[id]); d > max {
			max = d
		}
	}
	return max
}

// criticalPath returns the longest cumulative-duration chain through the
// DAG, by id, from a source task (no dependencies) to a sink task (no
// dependents).
func criticalPath(tasks []*goalmodel.Task, deps map[string][]string, byID map[string]*goalmodel.Task) []string {
	memoDuration := make(map[string]time.Duration, len(tasks))
	memoPath := make(map[string][]string, len(tasks))

	var longestTo func(id string) time.Duration
	longestTo = func(id string) time.Duration {
		if d, ok := memoDuration[id]; ok {
			return d
		}
		best := time.Duration(0)
		var bestPath []string
		for _, dep := range deps[id] {
			if d := longestTo(dep); d > best {
				best = d
				bestPath = memoPath[dep]
			}
		}
		total := best + durationOf(byID[id])
		memoDuration[id] = total
		memoPath[id] = append(append([]string{}, bestPath...), id)
		return total
	}

	var bestID string
	var bestDur time.Duration
	for _, t := range tasks {
		d := longestTo(t.ID)
		if d > bestDur {
			bestDur = d
			bestID = t.ID
		}
	}
	if bestID == "" {
		return nil
	}
	return memoPath[bestID]
}

// topBottlenecks ranks tasks by fan-in (how many tasks directly depend on
// them) and returns the top k.
func topBottlenecks(tasks []*goalmodel.Task, deps map[string][]string, critical []string, k int) []Bottleneck {
	onCritical := make(map[string]bool, len(critical))
	for _, id := range critical {
		onCritical[id] = true
	}

	fanIn := make(map[string]int, len(tasks))
	for _, ds := range deps {
		for _, d := range ds {
			fanIn[d]++
		}
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return fanIn[ids[i]] > fanIn[ids[j]] })

	if k > len(ids) {
		k = len(ids)
	}
	out := make([]Bottleneck, 0, k)
	for _, id := range ids[:k] {
		if fanIn[id] == 0 {
			break
		}
		out = append(out, Bottleneck{TaskID: id, FanIn: fanIn[id], OnCritical: onCritical[id]})
	}
	return out
}
