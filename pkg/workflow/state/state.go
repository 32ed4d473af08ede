package state

import (
	"encoding/json"
	"time"
)

// FeedbackType classifies human feedback on a unit of content.
type FeedbackType string

const (
	FeedbackApprove    FeedbackType = "APPROVE"
	FeedbackReject     FeedbackType = "REJECT"
	FeedbackRegenerate FeedbackType = "REGENERATE"
	FeedbackEdit       FeedbackType = "EDIT"
)

// FeedbackProcessing tracks whether recorded feedback has been applied.
type FeedbackProcessing string

const (
	FeedbackPending   FeedbackProcessing = "PENDING"
	FeedbackProcessed FeedbackProcessing = "PROCESSED"
)

// SourceDocument is the ingested document the job works from.
type SourceDocument struct {
	ID     string      `json:"id"`
	Status PhaseStatus `json:"status"`
	Text   string      `json:"text,omitempty"`
}

// EvaluationResult is one automatic evaluation attempt. Immutable once
// attached to a phase or section.
type EvaluationResult struct {
	Scores       map[string]float64 `json:"scores"`
	Feedback     map[string]string  `json:"feedback"`
	OverallScore float64            `json:"overallScore"`
	Passed       bool               `json:"passed"`
	Summary      string             `json:"summary"`
}

// PhaseRecord is the progress of one top-level phase (research, solution
// analysis, connections).
type PhaseRecord struct {
	Status     PhaseStatus       `json:"status"`
	Result     string            `json:"result,omitempty"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
	Retries    int               `json:"retries,omitempty"`
}

// SectionRecord is one content unit.
type SectionRecord struct {
	ID      SectionID   `json:"id"`
	Content string      `json:"content,omitempty"`
	Status  PhaseStatus `json:"status"`
	// PreviousStatus is set only while Status == STALE and cleared when the
	// stale decision resolves.
	PreviousStatus PhaseStatus       `json:"previousStatus,omitempty"`
	Evaluation     *EvaluationResult `json:"evaluation,omitempty"`
	// Guidance is operator text attached by a regenerate decision, consumed
	// by the next generation attempt.
	Guidance    string    `json:"guidance,omitempty"`
	Retries     int       `json:"retries,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// UserFeedback is one human decision on a unit of content.
type UserFeedback struct {
	Type      FeedbackType     `json:"type"`
	Comments  string           `json:"comments,omitempty"`
	Reference ContentReference `json:"contentReference"`
	Timestamp time.Time        `json:"timestamp"`
}

// InterruptStatus describes one pause/resume cycle. It is reset to the zero
// value once feedback has been fully applied and processed.
type InterruptStatus struct {
	IsInterrupted     bool               `json:"isInterrupted"`
	InterruptionPoint string             `json:"interruptionPoint,omitempty"`
	Reference         *ContentReference  `json:"contentReference,omitempty"`
	Feedback          *UserFeedback      `json:"feedback,omitempty"`
	ProcessingStatus  FeedbackProcessing `json:"processingStatus,omitempty"`
}

// ErrorRecord is one job-level error with enough context for a human to
// decide on retry, manual edit, or abandonment.
type ErrorRecord struct {
	Reference  *ContentReference `json:"contentReference,omitempty"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Transition string            `json:"transition,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// WorkflowState is the aggregate root for one job. It is a value: reducers
// never mutate it in place.
type WorkflowState struct {
	SourceDocument   SourceDocument              `json:"sourceDocument"`
	Research         PhaseRecord                 `json:"research"`
	Solution         PhaseRecord                 `json:"solution"`
	Connections      PhaseRecord                 `json:"connections"`
	Sections         map[SectionID]SectionRecord `json:"sections"`
	RequiredSections []SectionID                 `json:"requiredSections"`
	Interrupt        InterruptStatus             `json:"interruptStatus"`
	UserFeedback     *UserFeedback               `json:"userFeedback,omitempty"`
	Errors           []ErrorRecord               `json:"errors"`
	CreatedAt        time.Time                   `json:"createdAt"`
	LastUpdatedAt    time.Time                   `json:"lastUpdatedAt"`
	Status           WorkflowStatus              `json:"status"`
}

// New builds the initial state for a job: every required section starts
// QUEUED, phases NOT_STARTED.
func New(docID string, requiredSections []SectionID, now time.Time) WorkflowState {
	sections := make(map[SectionID]SectionRecord, len(requiredSections))
	for _, id := range requiredSections {
		sections[id] = SectionRecord{
			ID:          id,
			Status:      StatusQueued,
			LastUpdated: now,
		}
	}
	return WorkflowState{
		SourceDocument:   SourceDocument{ID: docID, Status: StatusApproved},
		Research:         PhaseRecord{Status: StatusNotStarted},
		Solution:         PhaseRecord{Status: StatusNotStarted},
		Connections:      PhaseRecord{Status: StatusNotStarted},
		Sections:         sections,
		RequiredSections: append([]SectionID(nil), requiredSections...),
		Errors:           []ErrorRecord{},
		CreatedAt:        now,
		LastUpdatedAt:    now,
		Status:           WorkflowRunning,
	}
}

// Phase returns the phase record for a phase-kind reference, nil otherwise.
func (s *WorkflowState) Phase(ref ContentReference) *PhaseRecord {
	switch ref.Kind {
	case KindResearch:
		return &s.Research
	case KindSolution:
		return &s.Solution
	case KindConnections:
		return &s.Connections
	}
	return nil
}

// Section returns the section record and whether it exists.
func (s *WorkflowState) Section(id SectionID) (SectionRecord, bool) {
	rec, ok := s.Sections[id]
	return rec, ok
}

// UnitStatus returns the current status of the referenced unit, and false
// when the reference points at an unknown section.
func (s *WorkflowState) UnitStatus(ref ContentReference) (PhaseStatus, bool) {
	if ref.Kind == KindSection {
		rec, ok := s.Sections[ref.SectionID]
		if !ok {
			return "", false
		}
		return rec.Status, true
	}
	if p := s.Phase(ref); p != nil {
		return p.Status, true
	}
	return "", false
}

// AllSectionsAccepted reports whether every required section is APPROVED or
// EDITED.
func (s *WorkflowState) AllSectionsAccepted() bool {
	for _, id := range s.RequiredSections {
		rec, ok := s.Sections[id]
		if !ok || !rec.Status.Accepted() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy suitable for reducer application.
func (s WorkflowState) Clone() WorkflowState {
	out := s
	out.Sections = make(map[SectionID]SectionRecord, len(s.Sections))
	for k, v := range s.Sections {
		out.Sections[k] = v
	}
	out.RequiredSections = append([]SectionID(nil), s.RequiredSections...)
	out.Errors = append([]ErrorRecord(nil), s.Errors...)
	return out
}

// Serialize encodes the state for checkpointing.
func Serialize(s WorkflowState) ([]byte, error) {
	return json.Marshal(s)
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (WorkflowState, error) {
	var s WorkflowState
	if err := json.Unmarshal(data, &s); err != nil {
		return WorkflowState{}, err
	}
	if s.Sections == nil {
		s.Sections = map[SectionID]SectionRecord{}
	}
	if s.Errors == nil {
		s.Errors = []ErrorRecord{}
	}
	return s, nil
}
