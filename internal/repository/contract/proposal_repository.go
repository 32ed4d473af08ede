package contract

import (
	"context"

	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ProposalRepository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	Update(ctx context.Context, proposal *entity.Proposal) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Proposal, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Proposal, error)
}
