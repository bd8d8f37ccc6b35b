package reasoning

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
)

func contextWithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}

// Engine wraps an engine.ModelEngine with the reasoning-specific prompt and
// output contract. It never mutates the ExecutionContext it is given; the
// orchestrator decides what to do with the returned ReasoningResult.
type Engine struct {
	model engine.ModelEngine
}

// NewEngine builds a reasoning Engine over model.
func NewEngine(model engine.ModelEngine) *Engine {
	return &Engine{model: model}
}

// Reason runs one reasoning pass over ctxState's current snapshot. It must
// respect ctx cancellation and returns a KindTimeout AgentError if the
// model does not answer within DefaultTimeout (when ctx carries no earlier
// deadline).
func (e *Engine) Reason(ctx context.Context, ctxState *goalmodel.ExecutionContext) (ReasoningResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = contextWithDefaultTimeout(ctx)
		defer cancel()
	}

	req := engine.Request{
		Messages: []engine.Message{
			{Role: engine.RoleSystem, Content: reasoningSystemPrompt()},
			{Role: engine.RoleUser, Content: buildReasoningPrompt(ctxState)},
		},
		Temperature: 0.2,
		MaxTokens:   1200,
	}

	resp, err := e.model.Execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return e.fallback(), agenterr.Wrap(agenterr.KindTimeout, "reasoning: model call", err)
		}
		return e.fallback(), agenterr.Wrap(agenterr.KindInternal, "reasoning: model call", err)
	}

	result, err := parseReasoningOutput(resp.Content)
	if err != nil {
		log.Printf("[Reasoning] falling back to safe default: %v", err)
		return e.fallback(), nil
	}
	return result, nil
}

// fallback is the ExecFallback-style safe default: low confidence, no
// suggested actions, so the orchestrator keeps iterating instead of
// mistaking a parse failure for progress.
func (e *Engine) fallback() ReasoningResult {
	return ReasoningResult{
		ReasoningOutput:   "reasoning output could not be parsed; continuing conservatively",
		Confidence:        0.2,
		GoalMetConfidence: 0.0,
	}
}

// reasoningSystemPrompt is the L1 hardcoded protocol layer: fixed output
// contract, independent of goal or project.
func reasoningSystemPrompt() string {
	return strings.TrimSpace(`
You are the reasoning stage of an autonomous agent loop. Given the current
goal, its success criteria, recent observations, and any active strategy
hints, produce a short analysis of progress so far and decide what should
happen next.

Respond with YAML only, matching exactly this shape:

reasoning_output: <string, 1-3 sentences>
confidence: <float 0..1, how confident you are in this analysis>
goal_met_confidence: <float 0..1, how confident you are the goal is fully met>
suggested_next_actions:
  - <short imperative string>

Do not wrap the YAML in a code fence. Do not add any other keys.
`)
}

// buildReasoningPrompt is the L2 layer: the caller-specific context for
// this reasoning pass.
func buildReasoningPrompt(ctxState *goalmodel.ExecutionContext) string {
	snap := ctxState.Snapshot()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", ctxState.Goal.Description)
	fmt.Fprintf(&sb, "Success criteria:\n")
	for _, c := range ctxState.Goal.SuccessCriteria {
		fmt.Fprintf(&sb, "  - %s\n", c)
	}
	fmt.Fprintf(&sb, "Iteration: %d, active tasks: %d, completed tasks: %d (%d successful)\n",
		snap.IterationCount, snap.ActiveCount, snap.CompletedCount, snap.SuccessfulCount)

	if hints := ctxState.StrategyHints; len(hints) > 0 {
		sb.WriteString("Active strategy hints:\n")
		for _, h := range hints {
			fmt.Fprintf(&sb, "  - %s\n", h)
		}
	}

	recent := ctxState.RecentObservations(10)
	if len(recent) > 0 {
		sb.WriteString("Recent observations (oldest first):\n")
		for _, o := range recent {
			fmt.Fprintf(&sb, "  - [%s] %s\n", o.Kind, truncate(o.Content, 300))
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// windowsPathInQuotes matches double-quoted YAML strings so fixBackslashes
// can target just the path-shaped content LLMs sometimes emit unescaped,
// the same targeted fix the teacher's decide.go applies to its own YAML
// decisions.
var windowsPathInQuotes = regexp.MustCompile(`"([^"\n]*\\[^"\n]*)"`)

func fixBackslashes(s string) string {
	return windowsPathInQuotes.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[1 : len(match)-1]
		inner = strings.ReplaceAll(inner, `\`, `/`)
		return `"` + inner + `"`
	})
}

// parseReasoningOutput parses the model's YAML response, retrying once
// with fixBackslashes applied if the first parse fails.
func parseReasoningOutput(raw string) (ReasoningResult, error) {
	yamlStr := stripCodeFence(raw)

	var result ReasoningResult
	if err := yaml.Unmarshal([]byte(yamlStr), &result); err != nil {
		fixed := fixBackslashes(yamlStr)
		if err2 := yaml.Unmarshal([]byte(fixed), &result); err2 != nil {
			return ReasoningResult{}, fmt.Errorf("reasoning: parse yaml: %w (after backslash-fix retry: %v)", err, err2)
		}
		log.Printf("[Reasoning] recovered from YAML backslash issue")
	}
	if result.ReasoningOutput == "" {
		return ReasoningResult{}, fmt.Errorf("reasoning: empty reasoning_output")
	}
	return result, nil
}

// stripCodeFence removes a leading/trailing ``` fence some models add
// despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
