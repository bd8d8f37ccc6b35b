package reasoning

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/axon/internal/agenterr"
	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/goalmodel"
)

// VerifyCriteria runs one corroborating verification call per success
// criterion, per spec.md §4.1: the orchestrator must not trust a reasoning
// pass's goal_met_confidence alone, but only when every criterion also
// verifies independently at or above ThetaComplete. A criterion that fails
// to parse is scored 0 so it cannot silently pass verification.
func (e *Engine) VerifyCriteria(ctx context.Context, ctxState *goalmodel.ExecutionContext, criteria []string) ([]CriterionVerification, error) {
	out := make([]CriterionVerification, 0, len(criteria))
	for _, c := range criteria {
		v, err := e.verifyOne(ctx, ctxState, c)
		if err != nil {
			if ctx.Err() != nil {
				return out, agenterr.Wrap(agenterr.KindTimeout, "reasoning: verify criterion", err)
			}
			log.Printf("[Reasoning] verification of %q failed, scoring 0: %v", c, err)
			v = CriterionVerification{Criterion: c, Confidence: 0, Rationale: "verification call failed"}
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Engine) verifyOne(ctx context.Context, ctxState *goalmodel.ExecutionContext, criterion string) (CriterionVerification, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = contextWithDefaultTimeout(ctx)
		defer cancel()
	}

	req := engine.Request{
		Messages: []engine.Message{
			{Role: engine.RoleSystem, Content: verificationSystemPrompt()},
			{Role: engine.RoleUser, Content: buildVerificationPrompt(ctxState, criterion)},
		},
		Temperature: 0.0,
		MaxTokens:   400,
	}

	resp, err := e.model.Execute(ctx, req)
	if err != nil {
		return CriterionVerification{}, fmt.Errorf("verify %q: %w", criterion, err)
	}

	var parsed struct {
		Confidence float64 `yaml:"confidence"`
		Rationale  string  `yaml:"rationale"`
	}
	yamlStr := stripCodeFence(resp.Content)
	if err := yaml.Unmarshal([]byte(yamlStr), &parsed); err != nil {
		fixed := fixBackslashes(yamlStr)
		if err2 := yaml.Unmarshal([]byte(fixed), &parsed); err2 != nil {
			return CriterionVerification{}, fmt.Errorf("verify %q: parse yaml: %w", criterion, err)
		}
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return CriterionVerification{Criterion: criterion, Confidence: parsed.Confidence, Rationale: parsed.Rationale}, nil
}

func verificationSystemPrompt() string {
	return strings.TrimSpace(`
You are a corroborating verifier. You are given exactly one success
criterion and the evidence gathered so far. Decide independently, without
trusting any prior assessment, how confident you are that this single
criterion is fully satisfied by the evidence.

Respond with YAML only, matching exactly this shape:

confidence: <float 0..1>
rationale: <string, 1 sentence>

Do not wrap the YAML in a code fence. Do not add any other keys.
`)
}

func buildVerificationPrompt(ctxState *goalmodel.ExecutionContext, criterion string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Criterion to verify: %s\n", criterion)
	sb.WriteString("Evidence (recent observations, oldest first):\n")
	for _, o := range ctxState.RecentObservations(15) {
		fmt.Fprintf(&sb, "  - [%s] %s\n", o.Kind, truncate(o.Content, 300))
	}
	return sb.String()
}
