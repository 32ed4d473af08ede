package unitofwork

import (
	"context"

	"ai-proposalgen-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	ProposalRepository() contract.ProposalRepository
}
