package implementation

import (
	"context"
	"errors"

	"ai-proposalgen-be/internal/entity"
	"ai-proposalgen-be/internal/mapper"
	"ai-proposalgen-be/internal/model"
	"ai-proposalgen-be/internal/repository/contract"
	"ai-proposalgen-be/internal/repository/scope"
	"ai-proposalgen-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkflowMapper
}

func NewProposalRepository(db *gorm.DB) contract.ProposalRepository {
	return &ProposalRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkflowMapper(),
	}
}

func (r *ProposalRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ProposalRepositoryImpl) Create(ctx context.Context, proposal *entity.Proposal) error {
	m := r.mapper.ProposalToModel(proposal)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*proposal = *r.mapper.ProposalToEntity(m)
	return nil
}

func (r *ProposalRepositoryImpl) Update(ctx context.Context, proposal *entity.Proposal) error {
	m := r.mapper.ProposalToModel(proposal)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*proposal = *r.mapper.ProposalToEntity(m)
	return nil
}

func (r *ProposalRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Proposal{}, id).Error
}

func (r *ProposalRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Proposal, error) {
	var m model.Proposal
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ProposalToEntity(&m), nil
}

func (r *ProposalRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Proposal, error) {
	var models []*model.Proposal
	query := r.applySpecifications(r.db.WithContext(ctx), specs...).Scopes(scope.OrderByCreatedDesc)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Proposal, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ProposalToEntity(m)
	}
	return entities, nil
}
