package state

// PhaseStatus is the shared lifecycle status for top-level phases and sections.
type PhaseStatus string

const (
	StatusNotStarted         PhaseStatus = "NOT_STARTED"
	StatusQueued             PhaseStatus = "QUEUED"
	StatusRunning            PhaseStatus = "RUNNING"
	StatusAwaitingEvaluation PhaseStatus = "AWAITING_EVALUATION"
	StatusAwaitingReview     PhaseStatus = "AWAITING_REVIEW"
	StatusNeedsRevision      PhaseStatus = "NEEDS_REVISION"
	StatusApproved           PhaseStatus = "APPROVED"
	StatusEdited             PhaseStatus = "EDITED"
	StatusStale              PhaseStatus = "STALE"
	StatusError              PhaseStatus = "ERROR"
)

// Accepted reports whether the content behind this status can be built upon
// by dependents (terminal-success states).
func (s PhaseStatus) Accepted() bool {
	return s == StatusApproved || s == StatusEdited
}

// Terminal reports whether no further automatic transition applies.
func (s PhaseStatus) Terminal() bool {
	return s == StatusApproved || s == StatusEdited || s == StatusError
}

// Runnable reports whether the routing function may pick this unit for
// generation (pending, or previously accepted but invalidated upstream).
func (s PhaseStatus) Runnable() bool {
	return s == StatusQueued || s == StatusStale
}

// validTransitions is the per-unit state machine. Regeneration loops are
// ordinary transitions with an explicit retry counter, never graph cycles.
var validTransitions = map[PhaseStatus]map[PhaseStatus]bool{
	StatusNotStarted: {
		StatusQueued:  true,
		StatusRunning: true,
	},
	StatusQueued: {
		StatusRunning: true,
		StatusError:   true,
	},
	StatusRunning: {
		StatusAwaitingEvaluation: true,
		StatusError:              true,
	},
	StatusAwaitingEvaluation: {
		StatusApproved:       true,
		StatusAwaitingReview: true,
		StatusNeedsRevision:  true,
		StatusError:          true,
	},
	StatusAwaitingReview: {
		StatusApproved:      true,
		StatusEdited:        true,
		StatusNeedsRevision: true,
		StatusQueued:        true, // regenerate feedback requeues
		StatusError:         true,
	},
	StatusNeedsRevision: {
		StatusQueued: true,
		StatusError:  true,
	},
	StatusApproved: {
		StatusStale:         true,
		StatusEdited:        true,
		StatusNeedsRevision: true,
	},
	StatusEdited: {
		StatusStale:  true,
		StatusEdited: true,
	},
	StatusStale: {
		StatusApproved: true, // keep decision restores previous status
		StatusEdited:   true,
		StatusQueued:   true, // regenerate decision
		StatusRunning:  true,
	},
}

// CanTransition reports whether the per-unit state machine allows from -> to.
func CanTransition(from, to PhaseStatus) bool {
	if from == to {
		return true
	}
	return validTransitions[from][to]
}

// WorkflowStatus is the overall status of one job.
type WorkflowStatus string

const (
	WorkflowRunning     WorkflowStatus = "RUNNING"
	WorkflowInterrupted WorkflowStatus = "INTERRUPTED"
	WorkflowCompleted   WorkflowStatus = "COMPLETED"
	WorkflowError       WorkflowStatus = "ERROR"
)
