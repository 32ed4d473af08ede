package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-proposalgen-be/pkg/workflow/state"
)

// --- Workflow Lifecycle ---

type StartWorkflowRequest struct {
	ProposalId       uuid.UUID `json:"proposal_id" validate:"required"`
	SourceDocumentId string    `json:"source_document_id" validate:"required"`
	Title            string    `json:"title" validate:"required,min=3,max=200"`
	RequiredSections []string  `json:"required_sections,omitempty" validate:"omitempty,min=1,dive,min=1"`
	Subgraph         string    `json:"subgraph,omitempty" validate:"omitempty,alphanum"`
}

type StartWorkflowResponse struct {
	ThreadId  string    `json:"thread_id"`
	SessionId uuid.UUID `json:"session_id"`
	Status    string    `json:"status"`
}

type SubmitFeedbackRequest struct {
	ThreadId  string `json:"thread_id" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=APPROVE EDIT REGENERATE REJECT"`
	Comments  string `json:"comments,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type ResumeWorkflowRequest struct {
	ThreadId string `json:"thread_id" validate:"required"`
}

type WorkflowStepResponse struct {
	ThreadId  string                   `json:"thread_id"`
	Status    string                   `json:"status"`
	Decision  string                   `json:"decision"`
	Interrupt *InterruptStatusResponse `json:"interrupt,omitempty"`
}

type InterruptStatusResponse struct {
	IsInterrupted     bool   `json:"is_interrupted"`
	InterruptionPoint string `json:"interruption_point,omitempty"`
	Reference         string `json:"reference,omitempty"`
	ProcessingStatus  string `json:"processing_status,omitempty"`
}

// --- State Inspection ---

type WorkflowStateResponse struct {
	ThreadId      string                      `json:"thread_id"`
	Status        string                      `json:"status"`
	Research      *PhaseView                  `json:"research"`
	Solution      *PhaseView                  `json:"solution"`
	Connections   *PhaseView                  `json:"connections"`
	Sections      map[string]*SectionView     `json:"sections"`
	Required      []string                    `json:"required_sections"`
	Interrupt     *InterruptStatusResponse    `json:"interrupt,omitempty"`
	Errors        []state.ErrorRecord         `json:"errors,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	LastUpdatedAt time.Time                   `json:"last_updated_at"`
}

type PhaseView struct {
	Status     string                  `json:"status"`
	Result     string                  `json:"result,omitempty"`
	Evaluation *state.EvaluationResult `json:"evaluation,omitempty"`
	Retries    int                     `json:"retries"`
}

type SectionView struct {
	Id          string                  `json:"id"`
	Status      string                  `json:"status"`
	Content     string                  `json:"content,omitempty"`
	Evaluation  *state.EvaluationResult `json:"evaluation,omitempty"`
	Guidance    string                  `json:"guidance,omitempty"`
	Retries     int                     `json:"retries"`
	LastUpdated time.Time               `json:"last_updated"`
}

// WorkflowOpMessage is the queue payload for background advancement.
type WorkflowOpMessage struct {
	ThreadId string    `json:"thread_id"`
	UserId   uuid.UUID `json:"user_id"`
	// Ref, when set, tells the engine which unit the op is about so routing
	// can resume from it.
	Ref string `json:"ref,omitempty"`
}

// --- Section Operations ---

type EditSectionRequest struct {
	ThreadId  string `json:"thread_id" validate:"required"`
	SectionId string `json:"section_id" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type EditSectionResponse struct {
	SectionId   string   `json:"section_id"`
	Invalidated []string `json:"invalidated_sections"`
}

type ResolveStaleRequest struct {
	ThreadId  string `json:"thread_id" validate:"required"`
	SectionId string `json:"section_id" validate:"required"`
	Decision  string `json:"decision" validate:"required,oneof=keep regenerate"`
	Guidance  string `json:"guidance,omitempty"`
}
