package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowCheckpoint is one durable snapshot of a thread's workflow state.
// The thread id is the primary key, so a put is a single atomic upsert.
type WorkflowCheckpoint struct {
	ThreadId  string         `gorm:"type:text;primaryKey"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (WorkflowCheckpoint) TableName() string {
	return "workflow_checkpoints"
}
