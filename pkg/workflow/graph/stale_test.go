package graph

import (
	"errors"
	"testing"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

func acceptedState(t *testing.T, now time.Time) state.WorkflowState {
	t.Helper()
	st := state.New("doc-1", []state.SectionID{
		"problem_statement", "objectives", "methodology", "timeline", "budget", "impact",
	}, now)
	for id, rec := range st.Sections {
		rec.Status = state.StatusApproved
		rec.Content = "content for " + string(id)
		st.Sections[id] = rec
	}
	return st
}

func TestPropagateStaleMarksAcceptedDependents(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	g, err := New(proposalDeps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st := acceptedState(t, now)

	u := PropagateStale(g, st, "objectives", now)
	st = state.Apply(st, u)

	for _, id := range []state.SectionID{"methodology", "timeline", "budget", "impact"} {
		rec := st.Sections[id]
		if rec.Status != state.StatusStale {
			t.Errorf("%s = %s, want STALE", id, rec.Status)
		}
		if rec.PreviousStatus != state.StatusApproved {
			t.Errorf("%s previousStatus = %s, want APPROVED", id, rec.PreviousStatus)
		}
	}
	if st.Sections["objectives"].Status != state.StatusApproved {
		t.Errorf("edited section itself marked stale")
	}
	if st.Sections["problem_statement"].Status != state.StatusApproved {
		t.Errorf("upstream section marked stale")
	}
}

func TestPropagateStaleSkipsUnacceptedDependents(t *testing.T) {
	now := time.Now().UTC()
	g, err := New(proposalDeps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st := acceptedState(t, now)
	tl := st.Sections["timeline"]
	tl.Status = state.StatusQueued
	st.Sections["timeline"] = tl

	u := PropagateStale(g, st, "methodology", now)
	if _, touched := u.Sections["timeline"]; touched {
		t.Error("QUEUED dependent should not be touched")
	}
	if _, touched := u.Sections["budget"]; !touched {
		t.Error("APPROVED dependent should go stale")
	}
}

func TestPropagateStaleIdempotent(t *testing.T) {
	now := time.Now().UTC()
	g, err := New(proposalDeps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st := acceptedState(t, now)

	st = state.Apply(st, PropagateStale(g, st, "problem_statement", now))
	second := PropagateStale(g, st, "problem_statement", now.Add(time.Minute))

	if len(second.Sections) != 0 {
		t.Errorf("second propagation touched %d sections, want 0", len(second.Sections))
	}
	// PreviousStatus must still record the original accepted status.
	if st.Sections["impact"].PreviousStatus != state.StatusApproved {
		t.Errorf("previousStatus overwritten: %s", st.Sections["impact"].PreviousStatus)
	}
}

func TestResolveStaleKeep(t *testing.T) {
	now := time.Now().UTC()
	st := acceptedState(t, now)
	rec := st.Sections["budget"]
	rec.Status = state.StatusStale
	rec.PreviousStatus = state.StatusEdited
	st.Sections["budget"] = rec

	u, err := ResolveStale(st, "budget", DecisionKeep, "", now)
	if err != nil {
		t.Fatalf("ResolveStale: %v", err)
	}
	st = state.Apply(st, u)

	got := st.Sections["budget"]
	if got.Status != state.StatusEdited {
		t.Errorf("status = %s, want EDITED restored", got.Status)
	}
	if got.PreviousStatus != "" {
		t.Errorf("previousStatus not cleared: %s", got.PreviousStatus)
	}
}

func TestResolveStaleRegenerate(t *testing.T) {
	now := time.Now().UTC()
	st := acceptedState(t, now)
	rec := st.Sections["impact"]
	rec.Status = state.StatusStale
	rec.PreviousStatus = state.StatusApproved
	rec.Evaluation = &state.EvaluationResult{Passed: true, OverallScore: 0.9}
	rec.Retries = 2
	st.Sections["impact"] = rec

	u, err := ResolveStale(st, "impact", DecisionRegenerate, "shorten the impact claims", now)
	if err != nil {
		t.Fatalf("ResolveStale: %v", err)
	}
	st = state.Apply(st, u)

	got := st.Sections["impact"]
	if got.Status != state.StatusQueued {
		t.Errorf("status = %s, want QUEUED", got.Status)
	}
	if got.Guidance != "shorten the impact claims" {
		t.Errorf("guidance = %q", got.Guidance)
	}
	if got.Evaluation != nil || got.Retries != 0 {
		t.Errorf("stale evaluation state not reset: %+v", got)
	}
}

func TestResolveStaleRejections(t *testing.T) {
	now := time.Now().UTC()
	st := acceptedState(t, now)

	tests := []struct {
		name     string
		id       state.SectionID
		decision StaleDecision
		sentinel error
	}{
		{name: "unknown section", id: "appendix", decision: DecisionKeep, sentinel: wferrors.ErrValidation},
		{name: "not stale", id: "budget", decision: DecisionKeep, sentinel: wferrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveStale(st, tt.id, tt.decision, "", now)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
		})
	}

	t.Run("keep without a recorded previous status", func(t *testing.T) {
		rec := st.Sections["budget"]
		rec.Status = state.StatusStale
		rec.PreviousStatus = ""
		st.Sections["budget"] = rec
		_, err := ResolveStale(st, "budget", DecisionKeep, "", now)
		if !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("err = %v, want invalid state error", err)
		}
	})

	t.Run("unknown decision", func(t *testing.T) {
		rec := st.Sections["budget"]
		rec.Status = state.StatusStale
		st.Sections["budget"] = rec
		_, err := ResolveStale(st, "budget", StaleDecision("discard"), "", now)
		if !errors.Is(err, wferrors.ErrValidation) {
			t.Errorf("err = %v, want validation error", err)
		}
	})
}
