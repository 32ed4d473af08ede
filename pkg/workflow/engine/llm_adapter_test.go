package engine

import (
	"context"
	"errors"
	"testing"

	"ai-proposalgen-be/pkg/llm"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// stubProvider replays a canned response or error and records the prompt.
type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func staticPrompt(text string) PromptFn {
	return func(state.WorkflowState, state.ContentReference) string { return text }
}

func TestLLMGenerator(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		providerErr error
		want        string
		wantErr     bool
	}{
		{name: "trims whitespace", response: "  generated text \n", want: "generated text"},
		{name: "empty output is upstream failure", response: "   ", wantErr: true},
		{name: "provider error is upstream failure", providerErr: errors.New("dial refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{response: tt.response, err: tt.providerErr}
			gen := NewLLMGenerator(provider, staticPrompt("write it"))

			got, err := gen(context.Background(), state.WorkflowState{}, state.ResearchRef())
			if tt.wantErr {
				if !errors.Is(err, wferrors.ErrUpstreamService) {
					t.Fatalf("err = %v, want upstream", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("generator: %v", err)
			}
			if got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if provider.prompt != "write it" {
				t.Errorf("prompt = %q", provider.prompt)
			}
		})
	}
}

func TestLLMEvaluator(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		providerErr error
		threshold   float64
		wantPassed  bool
		wantErrIs   error
	}{
		{
			name:       "passing score",
			response:   `{"scores": {"clarity": 0.9}, "feedback": {"clarity": "clear"}, "overallScore": 0.85, "summary": "solid"}`,
			threshold:  0.7,
			wantPassed: true,
		},
		{
			name:       "failing score",
			response:   `{"scores": {"clarity": 0.3}, "overallScore": 0.4, "summary": "vague"}`,
			threshold:  0.7,
			wantPassed: false,
		},
		{
			name:       "code fenced json",
			response:   "```json\n{\"overallScore\": 0.8, \"summary\": \"ok\"}\n```",
			threshold:  0.7,
			wantPassed: true,
		},
		{
			name:      "prose instead of json",
			response:  "This section is quite good overall.",
			threshold: 0.7,
			wantErrIs: wferrors.ErrParse,
		},
		{
			name:        "provider failure",
			providerErr: errors.New("timeout"),
			threshold:   0.7,
			wantErrIs:   wferrors.ErrUpstreamService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{response: tt.response, err: tt.providerErr}
			eval := NewLLMEvaluator(provider, staticPrompt("score it"), tt.threshold)

			got, err := eval(context.Background(), state.WorkflowState{}, state.SectionRef("budget"), "the content")
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("err = %v, want %v", err, tt.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("evaluator: %v", err)
			}
			if got.Passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v (score %v)", got.Passed, tt.wantPassed, got.OverallScore)
			}
			if got.Scores == nil || got.Feedback == nil {
				t.Error("maps not defaulted")
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare json untouched", input: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "anonymous fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", input: "  ```json\n{\"a\":1}\n```  ", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
