package mapper

import (
	"time"

	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/model"
)

type WorkflowMapper struct{}

func NewWorkflowMapper() *WorkflowMapper {
	return &WorkflowMapper{}
}

// Session Mappers

func (m *WorkflowMapper) SessionToEntity(s *model.WorkflowSession) *entity.SessionMetadata {
	if s == nil {
		return nil
	}
	return &entity.SessionMetadata{
		SessionId:    s.Id,
		ThreadId:     s.ThreadId,
		ProposalId:   s.ProposalId,
		UserId:       s.UserId,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		State:        entity.SessionState(s.State),
		CurrentPhase: s.CurrentPhase,
	}
}

func (m *WorkflowMapper) SessionToModel(s *entity.SessionMetadata) *model.WorkflowSession {
	if s == nil {
		return nil
	}
	return &model.WorkflowSession{
		Id:           s.SessionId,
		ThreadId:     s.ThreadId,
		ProposalId:   s.ProposalId,
		UserId:       s.UserId,
		State:        string(s.State),
		CurrentPhase: s.CurrentPhase,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// SessionToArchive moves a closed session into cold storage form.
func (m *WorkflowMapper) SessionToArchive(s *entity.SessionMetadata, reason string) *model.WorkflowSessionArchive {
	if s == nil {
		return nil
	}
	return &model.WorkflowSessionArchive{
		Id:           s.SessionId,
		ThreadId:     s.ThreadId,
		ProposalId:   s.ProposalId,
		UserId:       s.UserId,
		FinalState:   string(s.State),
		CurrentPhase: s.CurrentPhase,
		Reason:       reason,
		CreatedAt:    s.CreatedAt,
	}
}

// Proposal Mappers

func (m *WorkflowMapper) ProposalToEntity(p *model.Proposal) *entity.Proposal {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.Proposal{
		Id:               p.Id,
		UserId:           p.UserId,
		Title:            p.Title,
		SourceDocumentId: p.SourceDocumentId,
		Status:           p.Status,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        updatedAt,
		IsDeleted:        p.DeletedAt.Valid,
	}
}

func (m *WorkflowMapper) ProposalToModel(p *entity.Proposal) *model.Proposal {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.Proposal{
		Id:               p.Id,
		UserId:           p.UserId,
		Title:            p.Title,
		SourceDocumentId: p.SourceDocumentId,
		Status:           p.Status,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}
