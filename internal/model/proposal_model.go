package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proposal is one document being produced. Ownership is checked against
// UserId before any workflow operation touches its thread.
type Proposal struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title            string         `gorm:"type:text;not null"`
	SourceDocumentId string         `gorm:"type:text"`
	Status           string         `gorm:"type:text;not null;default:'DRAFT'"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Proposal) TableName() string {
	return "proposals"
}
