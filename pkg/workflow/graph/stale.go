package graph

import (
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// StaleDecision is the human resolution for a STALE section.
type StaleDecision string

const (
	// DecisionKeep restores the status the section held before it went stale.
	DecisionKeep StaleDecision = "keep"
	// DecisionRegenerate re-queues the section, optionally with operator
	// guidance for the next generation attempt.
	DecisionRegenerate StaleDecision = "regenerate"
)

// PropagateStale marks every transitive dependent of the edited section that
// is currently APPROVED or EDITED as STALE, recording its previous status.
// Sections already QUEUED, RUNNING, or STALE are left untouched, which makes
// the operation idempotent. The edited section itself is never marked.
func PropagateStale(g *Graph, st state.WorkflowState, edited state.SectionID, now time.Time) state.Update {
	changed := map[state.SectionID]state.SectionRecord{}
	for _, dep := range g.AllDependents(edited) {
		rec, ok := st.Sections[dep]
		if !ok || !rec.Status.Accepted() {
			continue
		}
		rec.PreviousStatus = rec.Status
		rec.Status = state.StatusStale
		rec.LastUpdated = now
		changed[dep] = rec
	}
	return state.Update{Sections: changed, LastUpdatedAt: now}
}

// ResolveStale applies a keep/regenerate decision to a STALE section. Any
// decision on a non-stale section is rejected.
func ResolveStale(st state.WorkflowState, id state.SectionID, decision StaleDecision, guidance string, now time.Time) (state.Update, error) {
	rec, ok := st.Sections[id]
	if !ok {
		return state.Update{}, wferrors.Validation("unknown section %q", id)
	}
	if rec.Status != state.StatusStale {
		return state.Update{}, wferrors.InvalidState("section %q is %s, not STALE", id, rec.Status)
	}

	switch decision {
	case DecisionKeep:
		if rec.PreviousStatus == "" {
			return state.Update{}, wferrors.InvalidState("section %q has no accepted status to restore", id)
		}
		rec.Status = rec.PreviousStatus
		rec.PreviousStatus = ""
	case DecisionRegenerate:
		rec.Status = state.StatusQueued
		rec.PreviousStatus = ""
		rec.Guidance = guidance
		rec.Evaluation = nil
		rec.Retries = 0
	default:
		return state.Update{}, wferrors.Validation("unknown stale decision %q", decision)
	}
	rec.LastUpdated = now
	return state.SectionUpdate(rec, now), nil
}
