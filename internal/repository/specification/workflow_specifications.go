package specification

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByThreadId struct {
	ThreadID string
}

func (s ByThreadId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadID)
}

type ByProposalId struct {
	ProposalID uuid.UUID
}

func (s ByProposalId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("proposal_id = ?", s.ProposalID)
}

type BySessionState struct {
	State string
}

func (s BySessionState) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", s.State)
}
