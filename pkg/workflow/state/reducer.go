package state

import "time"

// Update is a partial update to a WorkflowState. Nil fields leave the
// corresponding state field unchanged; every present field has an explicit
// merge rule so updates produced by different steps of the same job compose
// deterministically when applied in order.
type Update struct {
	SourceDocument *SourceDocument
	Research       *PhaseRecord
	Solution       *PhaseRecord
	Connections    *PhaseRecord

	// Sections deep-merges by key: only the keys present here are replaced,
	// all other sections are preserved.
	Sections map[SectionID]SectionRecord

	// RequiredSections is last-write-wins when non-nil.
	RequiredSections []SectionID

	Interrupt *InterruptStatus

	UserFeedback      *UserFeedback
	ClearUserFeedback bool

	// AppendErrors is append-only.
	AppendErrors []ErrorRecord

	// CreatedAt merges to the earliest non-zero value ever supplied;
	// LastUpdatedAt to the latest.
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	Status WorkflowStatus
}

// Apply merges a partial update into a state and returns the result. It is
// pure and total: the input state is never mutated and no update can fail.
func Apply(s WorkflowState, u Update) WorkflowState {
	out := s.Clone()

	if u.SourceDocument != nil {
		out.SourceDocument = *u.SourceDocument
	}
	if u.Research != nil {
		out.Research = *u.Research
	}
	if u.Solution != nil {
		out.Solution = *u.Solution
	}
	if u.Connections != nil {
		out.Connections = *u.Connections
	}

	for id, rec := range u.Sections {
		out.Sections[id] = rec
	}

	if u.RequiredSections != nil {
		out.RequiredSections = append([]SectionID(nil), u.RequiredSections...)
	}

	if u.Interrupt != nil {
		out.Interrupt = *u.Interrupt
	}

	if u.ClearUserFeedback {
		out.UserFeedback = nil
	} else if u.UserFeedback != nil {
		fb := *u.UserFeedback
		out.UserFeedback = &fb
	}

	out.Errors = append(out.Errors, u.AppendErrors...)

	if !u.CreatedAt.IsZero() && (out.CreatedAt.IsZero() || u.CreatedAt.Before(out.CreatedAt)) {
		out.CreatedAt = u.CreatedAt
	}
	if u.LastUpdatedAt.After(out.LastUpdatedAt) {
		out.LastUpdatedAt = u.LastUpdatedAt
	}

	if u.Status != "" {
		out.Status = u.Status
	}

	return out
}

// SectionUpdate is a convenience for an update touching a single section.
func SectionUpdate(rec SectionRecord, at time.Time) Update {
	return Update{
		Sections:      map[SectionID]SectionRecord{rec.ID: rec},
		LastUpdatedAt: at,
	}
}
