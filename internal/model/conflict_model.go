package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Conflict struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title              string         `gorm:"type:varchar(255);not null"`
	Description        string         `gorm:"type:text;not null"`
	CreatedBy          uuid.UUID      `gorm:"type:uuid;not null;index"`
	CreatorEmail       string         `gorm:"type:varchar(255)"`
	Status             string         `gorm:"type:varchar(32);not null;default:'draft';index"`
	InterviewCompleted bool           `gorm:"not null;default:false"`
	Completion         datatypes.JSON `gorm:"type:jsonb"`
	CreatorResponses   datatypes.JSON `gorm:"type:jsonb"`
	Analysis           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`

	Messages []ConflictMessage `gorm:"foreignKey:ConflictId;constraint:OnDelete:CASCADE"`
}

func (Conflict) TableName() string {
	return "conflicts"
}

type ConflictMessage struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConflictId       uuid.UUID `gorm:"type:uuid;not null;index:idx_conflict_messages_conflict_type,priority:1"`
	UserId           uuid.UUID `gorm:"type:uuid;not null"`
	Prompt           string    `gorm:"type:text;not null"`
	ResponseStreamId string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_conflict_messages_by_stream"`
	Type             string    `gorm:"type:varchar(32);not null;default:'interview';index:idx_conflict_messages_conflict_type,priority:2"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (ConflictMessage) TableName() string {
	return "conflict_messages"
}
