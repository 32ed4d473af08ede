package implementation

import (
	"context"
	"errors"
	"time"

	"ai-proposalgen-be/internal/model"
	"ai-proposalgen-be/pkg/workflow/checkpoint"
	"ai-proposalgen-be/pkg/workflow/state"
	"ai-proposalgen-be/pkg/workflow/wferrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCheckpointStore persists workflow checkpoints in Postgres. Put is an
// upsert so repeated saves for the same thread stay a single row.
type GormCheckpointStore struct {
	db *gorm.DB
}

func NewGormCheckpointStore(db *gorm.DB) *GormCheckpointStore {
	return &GormCheckpointStore{db: db}
}

var _ checkpoint.Store = (*GormCheckpointStore)(nil)

func (s *GormCheckpointStore) Get(ctx context.Context, threadID string) (*checkpoint.Record, error) {
	var m model.WorkflowCheckpoint
	err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wferrors.Persistence("load checkpoint", err)
	}

	st, err := state.Deserialize([]byte(m.State))
	if err != nil {
		return nil, wferrors.Persistence("decode checkpoint", err)
	}
	return &checkpoint.Record{
		ThreadID:  m.ThreadId,
		State:     st,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func (s *GormCheckpointStore) Put(ctx context.Context, threadID string, st state.WorkflowState) error {
	raw, err := state.Serialize(st)
	if err != nil {
		return wferrors.Persistence("encode checkpoint", err)
	}

	m := model.WorkflowCheckpoint{
		ThreadId:  threadID,
		State:     datatypes.JSON(raw),
		UpdatedAt: time.Now().UTC(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return wferrors.Persistence("save checkpoint", err)
	}
	return nil
}

func (s *GormCheckpointStore) Delete(ctx context.Context, threadID string) error {
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&model.WorkflowCheckpoint{}).Error
	if err != nil {
		return wferrors.Persistence("delete checkpoint", err)
	}
	return nil
}

func (s *GormCheckpointStore) ListNamespaces(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	query := s.db.WithContext(ctx).Model(&model.WorkflowCheckpoint{}).Order("thread_id")
	if prefix != "" {
		query = query.Where("thread_id LIKE ?", prefix+"%")
	}
	if err := query.Pluck("thread_id", &ids).Error; err != nil {
		return nil, wferrors.Persistence("list checkpoints", err)
	}
	return ids, nil
}
