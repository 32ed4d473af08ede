package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-proposalgen-be/pkg/llm"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// PromptFn composes the prompt context for one unit from the current state.
type PromptFn func(st state.WorkflowState, ref state.ContentReference) string

// NewLLMGenerator adapts the LLM collaborator into a GenerationFn. Provider
// failures surface as upstream errors with the unit attached.
func NewLLMGenerator(provider llm.LLMProvider, prompt PromptFn) GenerationFn {
	return func(ctx context.Context, st state.WorkflowState, ref state.ContentReference) (string, error) {
		out, err := provider.Generate(ctx, prompt(st, ref))
		if err != nil {
			return "", wferrors.Upstream(ref.String(), err)
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", wferrors.Upstream(ref.String(), fmt.Errorf("collaborator returned empty content"))
		}
		return out, nil
	}
}

// evaluationPayload is the structured JSON the evaluator asks the model for.
type evaluationPayload struct {
	Scores       map[string]float64 `json:"scores"`
	Feedback     map[string]string  `json:"feedback"`
	OverallScore float64            `json:"overallScore"`
	Summary      string             `json:"summary"`
}

// NewLLMEvaluator adapts the LLM collaborator into an EvaluationFn. The
// model is asked for structured JSON; output that cannot be interpreted is a
// parse error and counts against the unit's retry budget like an upstream
// failure.
func NewLLMEvaluator(provider llm.LLMProvider, prompt PromptFn, passThreshold float64) EvaluationFn {
	return func(ctx context.Context, st state.WorkflowState, ref state.ContentReference, content string) (*state.EvaluationResult, error) {
		raw, err := provider.Generate(ctx, prompt(st, ref)+"\n\n---\n\n"+content)
		if err != nil {
			return nil, wferrors.Upstream(ref.String(), err)
		}

		var payload evaluationPayload
		if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
			return nil, wferrors.Parse(ref.String(), err)
		}
		if payload.Scores == nil {
			payload.Scores = map[string]float64{}
		}
		if payload.Feedback == nil {
			payload.Feedback = map[string]string{}
		}

		return &state.EvaluationResult{
			Scores:       payload.Scores,
			Feedback:     payload.Feedback,
			OverallScore: payload.OverallScore,
			Passed:       payload.OverallScore >= passThreshold,
			Summary:      payload.Summary,
		}, nil
	}
}

// stripCodeFence unwraps ```json fenced blocks some models insist on.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
