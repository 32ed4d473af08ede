package interrupt

import (
	"errors"
	"testing"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

func interruptedAt(point string, ref state.ContentReference, sectionStatus state.PhaseStatus) state.WorkflowState {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
	rec := st.Sections["problem_statement"]
	rec.Status = sectionStatus
	rec.Content = "draft content"
	rec.Evaluation = &state.EvaluationResult{OverallScore: 0.4, Summary: "weak"}
	st.Sections["problem_statement"] = rec

	c := NewController()
	return state.Apply(st, c.Interrupt(point, ref, now))
}

func TestInterruptPausesThread(t *testing.T) {
	c := NewController()
	now := time.Now().UTC()
	st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
	ref := state.SectionRef("problem_statement")

	st = state.Apply(st, c.Interrupt("review:section:problem_statement", ref, now))

	if !st.Interrupt.IsInterrupted {
		t.Fatal("thread not interrupted")
	}
	if st.Interrupt.InterruptionPoint != "review:section:problem_statement" {
		t.Errorf("point = %q", st.Interrupt.InterruptionPoint)
	}
	if st.Interrupt.Reference == nil || *st.Interrupt.Reference != ref {
		t.Errorf("reference = %v", st.Interrupt.Reference)
	}
	if st.Status != state.WorkflowInterrupted {
		t.Errorf("status = %s, want INTERRUPTED", st.Status)
	}
	if err := c.EnsureNotInterrupted(st); !errors.Is(err, wferrors.ErrInterruptedState) {
		t.Errorf("EnsureNotInterrupted = %v", err)
	}
}

func TestSubmitFeedbackTypeTransitions(t *testing.T) {
	ref := state.SectionRef("problem_statement")

	tests := []struct {
		name       string
		fbType     state.FeedbackType
		comments   string
		wantStatus state.PhaseStatus
		check      func(*testing.T, state.SectionRecord)
	}{
		{
			name:       "approve accepts the content",
			fbType:     state.FeedbackApprove,
			wantStatus: state.StatusApproved,
		},
		{
			name:       "edit replaces content and accepts",
			fbType:     state.FeedbackEdit,
			comments:   "rewritten by hand",
			wantStatus: state.StatusEdited,
			check: func(t *testing.T, rec state.SectionRecord) {
				if rec.Content != "rewritten by hand" {
					t.Errorf("content = %q", rec.Content)
				}
			},
		},
		{
			name:       "regenerate at review requeues directly",
			fbType:     state.FeedbackRegenerate,
			comments:   "try a different angle",
			wantStatus: state.StatusQueued,
			check: func(t *testing.T, rec state.SectionRecord) {
				if rec.PreviousStatus != "" {
					t.Errorf("previousStatus = %q, want empty", rec.PreviousStatus)
				}
				if rec.Guidance != "try a different angle" {
					t.Errorf("guidance = %q", rec.Guidance)
				}
				if rec.Evaluation != nil {
					t.Errorf("stale evaluation kept: %+v", rec.Evaluation)
				}
			},
		},
		{
			name:       "reject sends back for revision with guidance",
			fbType:     state.FeedbackReject,
			comments:   "misses the funding criteria",
			wantStatus: state.StatusNeedsRevision,
			check: func(t *testing.T, rec state.SectionRecord) {
				if rec.Guidance != "misses the funding criteria" {
					t.Errorf("guidance = %q", rec.Guidance)
				}
				if rec.Evaluation != nil {
					t.Errorf("stale evaluation kept: %+v", rec.Evaluation)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			st := interruptedAt("review:section:problem_statement", ref, state.StatusAwaitingReview)
			now := time.Now().UTC()

			update, err := c.SubmitFeedback(st, state.UserFeedback{Type: tt.fbType, Comments: tt.comments}, now)
			if err != nil {
				t.Fatalf("SubmitFeedback: %v", err)
			}
			st = state.Apply(st, update)

			rec := st.Sections["problem_statement"]
			if rec.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", rec.Status, tt.wantStatus)
			}
			if st.Interrupt.ProcessingStatus != state.FeedbackPending {
				t.Errorf("processing = %s, want PENDING", st.Interrupt.ProcessingStatus)
			}
			if st.Interrupt.Feedback == nil || st.Interrupt.Feedback.Type != tt.fbType {
				t.Errorf("recorded feedback = %+v", st.Interrupt.Feedback)
			}
			if st.Interrupt.Feedback.Reference != ref {
				t.Errorf("feedback reference not defaulted: %v", st.Interrupt.Feedback.Reference)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestSubmitFeedbackRegenerateOnAcceptedGoesStale(t *testing.T) {
	ref := state.SectionRef("problem_statement")
	c := NewController()
	st := interruptedAt("evaluate:section:problem_statement", ref, state.StatusApproved)
	now := time.Now().UTC()

	update, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackRegenerate}, now)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	st = state.Apply(st, update)

	rec := st.Sections["problem_statement"]
	if rec.Status != state.StatusStale {
		t.Errorf("status = %s, want STALE", rec.Status)
	}
	if rec.PreviousStatus != state.StatusApproved {
		t.Errorf("previousStatus = %q, want APPROVED", rec.PreviousStatus)
	}
}

func TestSubmitFeedbackOnPhase(t *testing.T) {
	c := NewController()
	now := time.Now().UTC()
	st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
	st.Research = state.PhaseRecord{Status: state.StatusAwaitingReview, Result: "first pass"}
	st = state.Apply(st, c.Interrupt("review:research", state.ResearchRef(), now))

	update, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackEdit, Comments: "corrected analysis"}, now)
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	st = state.Apply(st, update)

	if st.Research.Status != state.StatusEdited {
		t.Errorf("research = %s, want EDITED", st.Research.Status)
	}
	if st.Research.Result != "corrected analysis" {
		t.Errorf("result = %q", st.Research.Result)
	}
}

func TestSubmitFeedbackRejections(t *testing.T) {
	c := NewController()
	now := time.Now().UTC()
	ref := state.SectionRef("problem_statement")

	t.Run("not interrupted", func(t *testing.T) {
		st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
		_, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackApprove, Reference: ref}, now)
		if !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})

	t.Run("unknown feedback type", func(t *testing.T) {
		st := interruptedAt("review:section:problem_statement", ref, state.StatusAwaitingReview)
		_, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackType("DEFER")}, now)
		if !errors.Is(err, wferrors.ErrValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("unknown section reference", func(t *testing.T) {
		st := interruptedAt("review:section:problem_statement", ref, state.StatusAwaitingReview)
		_, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackApprove, Reference: state.SectionRef("appendix")}, now)
		if !errors.Is(err, wferrors.ErrValidation) {
			t.Errorf("err = %v, want validation", err)
		}
	})

	t.Run("transition not allowed", func(t *testing.T) {
		// A QUEUED section cannot be approved directly.
		st := interruptedAt("review:section:problem_statement", ref, state.StatusQueued)
		_, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackApprove}, now)
		if !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("err = %v, want invalid state", err)
		}
	})
}

func TestResume(t *testing.T) {
	c := NewController()
	ref := state.SectionRef("problem_statement")
	now := time.Now().UTC()

	t.Run("requires pending feedback", func(t *testing.T) {
		st := interruptedAt("review:section:problem_statement", ref, state.StatusAwaitingReview)
		_, _, err := c.Resume(st, now)
		if !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("Resume without feedback: err = %v, want invalid state", err)
		}
	})

	t.Run("requires interrupted thread", func(t *testing.T) {
		st := state.New("doc-1", []state.SectionID{"problem_statement"}, now)
		_, _, err := c.Resume(st, now)
		if !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("Resume on running thread: err = %v, want invalid state", err)
		}
	})

	t.Run("clears interrupt and returns the paused reference", func(t *testing.T) {
		st := interruptedAt("review:section:problem_statement", ref, state.StatusAwaitingReview)
		update, err := c.SubmitFeedback(st, state.UserFeedback{Type: state.FeedbackApprove}, now)
		if err != nil {
			t.Fatalf("SubmitFeedback: %v", err)
		}
		st = state.Apply(st, update)

		resumeUpdate, gotRef, err := c.Resume(st, now)
		if err != nil {
			t.Fatalf("Resume: %v", err)
		}
		if gotRef != ref {
			t.Errorf("ref = %v, want %v", gotRef, ref)
		}
		st = state.Apply(st, resumeUpdate)

		if st.Interrupt.IsInterrupted {
			t.Error("interrupt not cleared")
		}
		if st.Interrupt.ProcessingStatus != state.FeedbackProcessed {
			t.Errorf("processing = %s, want PROCESSED", st.Interrupt.ProcessingStatus)
		}
		if st.Status != state.WorkflowRunning {
			t.Errorf("status = %s, want RUNNING", st.Status)
		}

		// A second resume on the same cycle must be rejected.
		if _, _, err := c.Resume(st, now); !errors.Is(err, wferrors.ErrInvalidState) {
			t.Errorf("double resume: err = %v, want invalid state", err)
		}
	})
}
