package engine

import (
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"
)

// TargetKind is what the router decided to do next.
type TargetKind string

const (
	// TargetRunPhase executes a top-level phase (research, solution,
	// connections).
	TargetRunPhase TargetKind = "run_phase"
	// TargetGenerateSection generates or regenerates one section.
	TargetGenerateSection TargetKind = "generate_section"
	// TargetAwaitReview parks the thread until human review feedback
	// arrives via the interrupt controller.
	TargetAwaitReview TargetKind = "await_review"
	// TargetFinalize re-checks completion and closes the job.
	TargetFinalize TargetKind = "finalize"
	// TargetErrorHandler surfaces a stuck or invalid condition to a human.
	TargetErrorHandler TargetKind = "error_handler"
)

// Target is one routing decision.
type Target struct {
	Kind TargetKind
	Ref  state.ContentReference
}

// phaseOrder is the fixed order of top-level phases preceding section
// generation.
var phaseOrder = []state.ContentReference{
	state.ResearchRef(),
	state.SolutionRef(),
	state.ConnectionsRef(),
}

// Route decides the next unit of work for the whole job: pending phases
// first, in order, then section selection.
func (e *Engine) Route(st state.WorkflowState) (Target, error) {
	for _, ref := range phaseOrder {
		phase := st.Phase(ref)
		switch {
		case phase.Status.Accepted():
			continue
		case phase.Status == state.StatusAwaitingReview:
			return Target{Kind: TargetAwaitReview, Ref: ref}, nil
		case phase.Status == state.StatusError:
			return Target{Kind: TargetErrorHandler, Ref: ref},
				wferrors.DependencyViolation(ref.String(), ref.String())
		default:
			return Target{Kind: TargetRunPhase, Ref: ref}, nil
		}
	}
	return e.DetermineNextSection(st)
}

// DetermineNextSection picks the next section to execute. Selection order is
// the declared requiredSections order; a section is eligible only when it is
// QUEUED or STALE and every prerequisite is APPROVED or EDITED.
func (e *Engine) DetermineNextSection(st state.WorkflowState) (Target, error) {
	if len(st.RequiredSections) == 0 {
		return Target{Kind: TargetErrorHandler},
			wferrors.Validation("no required sections configured")
	}

	for _, id := range st.RequiredSections {
		rec, ok := st.Sections[id]
		if ok && rec.Status == state.StatusAwaitingReview {
			return Target{Kind: TargetAwaitReview, Ref: state.SectionRef(id)}, nil
		}
	}

	allAccepted := true
	var blocked *state.SectionID
	var blockedOn state.SectionID
	for _, id := range st.RequiredSections {
		rec, ok := st.Sections[id]
		if !ok {
			rec = state.SectionRecord{ID: id, Status: state.StatusQueued}
		}
		if rec.Status.Accepted() {
			continue
		}
		allAccepted = false
		if !rec.Status.Runnable() {
			continue
		}

		ready := true
		for _, prereq := range e.graph.Dependencies(id) {
			dep, depOK := st.Sections[prereq]
			if !depOK || !dep.Status.Accepted() {
				ready = false
				if blocked == nil {
					blockedID := id
					blocked = &blockedID
					blockedOn = prereq
				}
				break
			}
		}
		if ready {
			return Target{Kind: TargetGenerateSection, Ref: state.SectionRef(id)}, nil
		}
	}

	if allAccepted {
		return Target{Kind: TargetFinalize}, nil
	}

	// Something is neither accepted nor runnable-and-ready: a prerequisite
	// errored or is stuck mid-flight. Detectable stuck condition, not a
	// silent deadlock.
	if blocked != nil {
		return Target{Kind: TargetErrorHandler, Ref: state.SectionRef(*blocked)},
			wferrors.DependencyViolation(state.SectionRef(*blocked).String(), string(blockedOn))
	}
	for _, id := range st.RequiredSections {
		rec := st.Sections[id]
		if !rec.Status.Accepted() && !rec.Status.Runnable() {
			return Target{Kind: TargetErrorHandler, Ref: state.SectionRef(id)},
				wferrors.DependencyViolation(state.SectionRef(id).String(), string(id))
		}
	}
	return Target{Kind: TargetErrorHandler},
		wferrors.Validation("router found no eligible section")
}

// RouteAfterEvaluation routes a unit after its evaluation resolved. A missing
// or failed evaluation sends the unit back through the regenerate path; a
// passed one advances normal selection.
func (e *Engine) RouteAfterEvaluation(st state.WorkflowState, ref state.ContentReference) (Target, error) {
	var eval *state.EvaluationResult
	switch ref.Kind {
	case state.KindSection:
		rec, ok := st.Sections[ref.SectionID]
		if !ok {
			return Target{Kind: TargetErrorHandler, Ref: ref},
				wferrors.Validation("unknown section %q", ref.SectionID)
		}
		if rec.Status == state.StatusNeedsRevision {
			return Target{Kind: TargetGenerateSection, Ref: ref}, nil
		}
		eval = rec.Evaluation
		if (eval == nil || !eval.Passed) && rec.Status.Runnable() {
			return Target{Kind: TargetGenerateSection, Ref: ref}, nil
		}
	default:
		phase := st.Phase(ref)
		if phase == nil {
			return Target{Kind: TargetErrorHandler, Ref: ref},
				wferrors.Validation("unknown content reference %q", ref.String())
		}
		if phase.Status == state.StatusNeedsRevision {
			return Target{Kind: TargetRunPhase, Ref: ref}, nil
		}
		eval = phase.Evaluation
		if (eval == nil || !eval.Passed) && !phase.Status.Accepted() && phase.Status != state.StatusError {
			return Target{Kind: TargetRunPhase, Ref: ref}, nil
		}
	}
	return e.Route(st)
}
