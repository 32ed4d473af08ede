// Package interrupt implements the pause/resume protocol around the engine's
// designated pause points. All functions produce reducer updates; durability
// is the caller's concern so recorded feedback survives a crash before the
// resume is triggered.
package interrupt

import (
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// Controller computes the state transitions of one pause/resume cycle.
type Controller struct{}

func NewController() *Controller {
	return &Controller{}
}

// EnsureNotInterrupted rejects any operation on a paused thread other than
// feedback submission.
func (c *Controller) EnsureNotInterrupted(st state.WorkflowState) error {
	if st.Interrupt.IsInterrupted {
		return wferrors.ErrInterruptedState
	}
	return nil
}

// Interrupt pauses the thread at a named point.
func (c *Controller) Interrupt(point string, ref state.ContentReference, now time.Time) state.Update {
	r := ref
	return state.Update{
		Interrupt: &state.InterruptStatus{
			IsInterrupted:     true,
			InterruptionPoint: point,
			Reference:         &r,
		},
		Status:        state.WorkflowInterrupted,
		LastUpdatedAt: now,
	}
}

// SubmitFeedback records human feedback on an interrupted thread and applies
// the content-status transition its type implies to the referenced unit.
// The caller must persist the resulting state before resuming.
func (c *Controller) SubmitFeedback(st state.WorkflowState, fb state.UserFeedback, now time.Time) (state.Update, error) {
	if !st.Interrupt.IsInterrupted {
		return state.Update{}, wferrors.InvalidState("feedback requires an interrupted thread")
	}
	if fb.Reference.IsZero() && st.Interrupt.Reference != nil {
		fb.Reference = *st.Interrupt.Reference
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = now
	}

	newStatus, err := statusForFeedback(fb.Type)
	if err != nil {
		return state.Update{}, err
	}

	interrupt := st.Interrupt
	interrupt.Feedback = &fb
	interrupt.ProcessingStatus = state.FeedbackPending

	update := state.Update{
		Interrupt:     &interrupt,
		UserFeedback:  &fb,
		LastUpdatedAt: now,
	}

	if err := applyToUnit(st, &update, fb, newStatus, now); err != nil {
		return state.Update{}, err
	}
	return update, nil
}

// Resume clears the interrupt once pending feedback exists. The caller
// re-enters the engine at the router for the returned reference; hitting the
// next pause point immediately is expected, not an error.
func (c *Controller) Resume(st state.WorkflowState, now time.Time) (state.Update, state.ContentReference, error) {
	if !st.Interrupt.IsInterrupted {
		return state.Update{}, state.ContentReference{}, wferrors.InvalidState("thread is not interrupted")
	}
	if st.Interrupt.ProcessingStatus != state.FeedbackPending {
		return state.Update{}, state.ContentReference{}, wferrors.InvalidState("no pending feedback to resume with")
	}

	var ref state.ContentReference
	if st.Interrupt.Reference != nil {
		ref = *st.Interrupt.Reference
	}

	// One cycle is over: the interrupt block resets to non-interrupted with
	// the processing marker retained.
	return state.Update{
		Interrupt: &state.InterruptStatus{
			ProcessingStatus: state.FeedbackProcessed,
		},
		Status:        state.WorkflowRunning,
		LastUpdatedAt: now,
	}, ref, nil
}

func statusForFeedback(t state.FeedbackType) (state.PhaseStatus, error) {
	switch t {
	case state.FeedbackApprove:
		return state.StatusApproved, nil
	case state.FeedbackEdit:
		return state.StatusEdited, nil
	case state.FeedbackRegenerate:
		// Applies only to accepted content; applyToUnit requeues the unit
		// instead when there is nothing to invalidate.
		return state.StatusStale, nil
	case state.FeedbackReject:
		return state.StatusNeedsRevision, nil
	}
	return "", wferrors.Validation("unknown feedback type %q", t)
}

func applyToUnit(st state.WorkflowState, update *state.Update, fb state.UserFeedback, newStatus state.PhaseStatus, now time.Time) error {
	switch fb.Reference.Kind {
	case state.KindSection:
		rec, ok := st.Sections[fb.Reference.SectionID]
		if !ok {
			return wferrors.Validation("feedback references unknown section %q", fb.Reference.SectionID)
		}
		if fb.Type == state.FeedbackRegenerate && !rec.Status.Accepted() {
			// Invalidation is reserved for accepted content. At a review
			// pause the section goes straight back to the queue.
			newStatus = state.StatusQueued
		}
		if !state.CanTransition(rec.Status, newStatus) {
			return wferrors.InvalidState("feedback %s not applicable to section %q in status %s",
				fb.Type, rec.ID, rec.Status)
		}
		if newStatus == state.StatusStale && rec.Status.Accepted() {
			rec.PreviousStatus = rec.Status
		}
		if fb.Type == state.FeedbackEdit && fb.Comments != "" {
			rec.Content = fb.Comments
		}
		if fb.Type == state.FeedbackReject {
			rec.Guidance = fb.Comments
			rec.Evaluation = nil
		}
		if newStatus == state.StatusQueued {
			rec.Guidance = fb.Comments
			rec.Evaluation = nil
			rec.Retries = 0
		}
		rec.Status = newStatus
		rec.LastUpdated = now
		update.Sections = map[state.SectionID]state.SectionRecord{rec.ID: rec}
		return nil

	case state.KindResearch, state.KindSolution, state.KindConnections:
		phase := *st.Phase(fb.Reference)
		if fb.Type == state.FeedbackRegenerate && !phase.Status.Accepted() {
			newStatus = state.StatusQueued
		}
		if !state.CanTransition(phase.Status, newStatus) {
			return wferrors.InvalidState("feedback %s not applicable to %s phase in status %s",
				fb.Type, fb.Reference.Kind, phase.Status)
		}
		if fb.Type == state.FeedbackEdit && fb.Comments != "" {
			phase.Result = fb.Comments
		}
		if newStatus == state.StatusQueued {
			phase.Evaluation = nil
			phase.Retries = 0
		}
		phase.Status = newStatus
		switch fb.Reference.Kind {
		case state.KindResearch:
			update.Research = &phase
		case state.KindSolution:
			update.Solution = &phase
		case state.KindConnections:
			update.Connections = &phase
		}
		return nil
	}
	return wferrors.Validation("feedback carries no content reference")
}
