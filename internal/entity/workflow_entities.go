package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of one workflow session.
type SessionState string

const (
	SessionRunning   SessionState = "RUNNING"
	SessionPaused    SessionState = "PAUSED"
	SessionCompleted SessionState = "COMPLETED"
	SessionError     SessionState = "ERROR"
)

// SessionMetadata tracks one active job: activity, timeout, and recovery.
type SessionMetadata struct {
	SessionId    uuid.UUID
	ThreadId     string
	ProposalId   uuid.UUID
	UserId       uuid.UUID
	CreatedAt    time.Time
	LastActivity time.Time
	State        SessionState
	CurrentPhase string
}

// Proposal is one document being produced.
type Proposal struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	Title            string
	SourceDocumentId string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	IsDeleted        bool
}
