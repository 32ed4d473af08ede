package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowSession is the durable record behind the in-memory session map.
// Closing with COMPLETED deletes it; pausing or closing with ERROR retains
// it for later recovery.
type WorkflowSession struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId     string    `gorm:"type:text;not null;uniqueIndex"`
	ProposalId   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId       uuid.UUID `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	State        string    `gorm:"type:text;not null"`
	CurrentPhase string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	LastActivity time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (WorkflowSession) TableName() string {
	return "workflow_sessions"
}

// WorkflowSessionArchive is cold storage for gracefully closed sessions.
type WorkflowSessionArchive struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId     string    `gorm:"type:text;not null;index"`
	ProposalId   uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId       uuid.UUID `gorm:"type:uuid;not null;index"`
	FinalState   string    `gorm:"type:text;not null"`
	CurrentPhase string    `gorm:"type:text"`
	Reason       string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	ClosedAt     time.Time `gorm:"autoCreateTime"`
}

func (WorkflowSessionArchive) TableName() string {
	return "workflow_session_archive"
}
