// Package thread defines the structured thread identifier that keys
// checkpoints: proposal:<proposalId>:user:<userId>(:subgraph:<name>)?
package thread

import (
	"fmt"
	"regexp"

	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/google/uuid"
)

// ID identifies one checkpointable execution of the workflow.
type ID struct {
	ProposalID uuid.UUID
	UserID     uuid.UUID
	Subgraph   string // optional sub-thread name
}

var idPattern = regexp.MustCompile(
	`^proposal:([0-9a-fA-F-]{36}):user:([0-9a-fA-F-]{36})(?::subgraph:([A-Za-z0-9_-]+))?$`,
)

// New builds a thread ID for a proposal and its owning user.
func New(proposalID, userID uuid.UUID) ID {
	return ID{ProposalID: proposalID, UserID: userID}
}

// WithSubgraph returns a sub-thread of this thread.
func (id ID) WithSubgraph(name string) ID {
	id.Subgraph = name
	return id
}

// String renders the canonical wire form. Parse(id.String()) == id for every
// valid ID.
func (id ID) String() string {
	s := fmt.Sprintf("proposal:%s:user:%s", id.ProposalID, id.UserID)
	if id.Subgraph != "" {
		s += ":subgraph:" + id.Subgraph
	}
	return s
}

// Parse is the inverse of String. Malformed identifiers are rejected at the
// boundary with a validation error.
func Parse(s string) (ID, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return ID{}, wferrors.Validation("malformed thread id %q", s)
	}
	proposalID, err := uuid.Parse(m[1])
	if err != nil {
		return ID{}, wferrors.Validation("malformed proposal id in thread id %q", s)
	}
	userID, err := uuid.Parse(m[2])
	if err != nil {
		return ID{}, wferrors.Validation("malformed user id in thread id %q", s)
	}
	return ID{ProposalID: proposalID, UserID: userID, Subgraph: m[3]}, nil
}
