// Package checkpoint defines durable persistence of serialized workflow
// state, keyed by structured thread identifier.
package checkpoint

import (
	"context"
	"time"

	"ai-proposalgen-be/pkg/workflow/state"
)

// Record is one persisted checkpoint.
type Record struct {
	ThreadID  string              `json:"threadId"`
	State     state.WorkflowState `json:"state"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Store is the checkpoint persistence contract. Put is atomic per thread
// (last write wins, no partial writes observable); implementations must
// support concurrent use for different thread ids.
type Store interface {
	// Get returns the checkpoint for a thread, or nil when absent.
	Get(ctx context.Context, threadID string) (*Record, error)
	Put(ctx context.Context, threadID string, st state.WorkflowState) error
	Delete(ctx context.Context, threadID string) error
	// ListNamespaces returns the thread ids whose namespace starts with the
	// given prefix.
	ListNamespaces(ctx context.Context, prefix string) ([]string, error)
}
