package state

import (
	"testing"
	"time"
)

func TestNewSeedsRequiredSections(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := New("doc-7", []SectionID{"problem_statement", "objectives"}, now)

	if st.SourceDocument.ID != "doc-7" || st.SourceDocument.Status != StatusApproved {
		t.Errorf("source document = %+v", st.SourceDocument)
	}
	for _, phase := range []PhaseRecord{st.Research, st.Solution, st.Connections} {
		if phase.Status != StatusNotStarted {
			t.Errorf("phase status = %s, want NOT_STARTED", phase.Status)
		}
	}
	for _, id := range []SectionID{"problem_statement", "objectives"} {
		rec, ok := st.Section(id)
		if !ok || rec.Status != StatusQueued {
			t.Errorf("section %s = %+v, ok=%v", id, rec, ok)
		}
	}
	if st.Status != WorkflowRunning {
		t.Errorf("status = %s, want RUNNING", st.Status)
	}
}

func TestUnitStatus(t *testing.T) {
	now := time.Now().UTC()
	st := New("doc-1", []SectionID{"timeline"}, now)
	st.Research.Status = StatusRunning

	tests := []struct {
		name string
		ref  ContentReference
		want PhaseStatus
		ok   bool
	}{
		{name: "research phase", ref: ResearchRef(), want: StatusRunning, ok: true},
		{name: "known section", ref: SectionRef("timeline"), want: StatusQueued, ok: true},
		{name: "unknown section", ref: SectionRef("appendix"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := st.UnitStatus(tt.ref)
			if ok != tt.ok || got != tt.want {
				t.Errorf("UnitStatus(%s) = (%s, %v), want (%s, %v)", tt.ref, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAllSectionsAccepted(t *testing.T) {
	now := time.Now().UTC()
	st := New("doc-1", []SectionID{"objectives", "budget"}, now)

	if st.AllSectionsAccepted() {
		t.Fatal("fresh state reported all sections accepted")
	}

	obj := st.Sections["objectives"]
	obj.Status = StatusApproved
	st.Sections["objectives"] = obj
	if st.AllSectionsAccepted() {
		t.Fatal("one pending section ignored")
	}

	bud := st.Sections["budget"]
	bud.Status = StatusEdited
	st.Sections["budget"] = bud
	if !st.AllSectionsAccepted() {
		t.Fatal("APPROVED+EDITED should count as accepted")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := New("doc-9", []SectionID{"methodology"}, now)
	ref := SectionRef("methodology")
	st.Interrupt = InterruptStatus{
		IsInterrupted:     true,
		InterruptionPoint: "section_review",
		Reference:         &ref,
		ProcessingStatus:  FeedbackPending,
	}
	rec := st.Sections["methodology"]
	rec.Status = StatusAwaitingReview
	rec.Content = "We propose a phased rollout."
	rec.Evaluation = &EvaluationResult{OverallScore: 0.82, Passed: true, Scores: map[string]float64{"clarity": 0.9}}
	st.Sections["methodology"] = rec

	data, err := Serialize(st)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !got.Interrupt.IsInterrupted || got.Interrupt.Reference == nil || *got.Interrupt.Reference != ref {
		t.Errorf("interrupt survives badly: %+v", got.Interrupt)
	}
	if got.Sections["methodology"].Evaluation == nil || !got.Sections["methodology"].Evaluation.Passed {
		t.Errorf("evaluation lost: %+v", got.Sections["methodology"])
	}
	if !got.CreatedAt.Equal(st.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, st.CreatedAt)
	}
}

func TestDeserializeEmptySections(t *testing.T) {
	got, err := Deserialize([]byte(`{"status":"RUNNING"}`))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Sections == nil {
		t.Fatal("Sections map not initialized")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from PhaseStatus
		to   PhaseStatus
		want bool
	}{
		{name: "queued to running", from: StatusQueued, to: StatusRunning, want: true},
		{name: "running to evaluation", from: StatusRunning, to: StatusAwaitingEvaluation, want: true},
		{name: "evaluation to review", from: StatusAwaitingEvaluation, to: StatusAwaitingReview, want: true},
		{name: "review to edited", from: StatusAwaitingReview, to: StatusEdited, want: true},
		{name: "needs revision requeues", from: StatusNeedsRevision, to: StatusQueued, want: true},
		{name: "approved can go stale", from: StatusApproved, to: StatusStale, want: true},
		{name: "review regenerate requeues", from: StatusAwaitingReview, to: StatusQueued, want: true},
		{name: "stale only from accepted", from: StatusAwaitingReview, to: StatusStale, want: false},
		{name: "stale keep restores approved", from: StatusStale, to: StatusApproved, want: true},
		{name: "self transition allowed", from: StatusRunning, to: StatusRunning, want: true},
		{name: "no skipping evaluation", from: StatusRunning, to: StatusApproved, want: false},
		{name: "error is terminal", from: StatusError, to: StatusQueued, want: false},
		{name: "queued cannot jump to review", from: StatusQueued, to: StatusAwaitingReview, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusApproved.Accepted() || !StatusEdited.Accepted() || StatusAwaitingReview.Accepted() {
		t.Error("Accepted predicate wrong")
	}
	if !StatusError.Terminal() || StatusStale.Terminal() {
		t.Error("Terminal predicate wrong")
	}
	if !StatusQueued.Runnable() || !StatusStale.Runnable() || StatusRunning.Runnable() {
		t.Error("Runnable predicate wrong")
	}
}
