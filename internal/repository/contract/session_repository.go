package contract

import (
	"context"

	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.SessionMetadata) error
	Update(ctx context.Context, session *entity.SessionMetadata) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionMetadata, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionMetadata, error)
	// Archive moves a closed session into cold storage and removes the live
	// record in one transaction.
	Archive(ctx context.Context, session *entity.SessionMetadata, reason string) error
}
