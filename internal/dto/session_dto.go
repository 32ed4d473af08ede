package dto

import (
	"time"

	"github.com/google/uuid"
)

type SessionResponse struct {
	SessionId    uuid.UUID `json:"session_id"`
	ThreadId     string    `json:"thread_id"`
	ProposalId   uuid.UUID `json:"proposal_id"`
	State        string    `json:"state"`
	CurrentPhase string    `json:"current_phase,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type CloseSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}
