package model

import (
	"time"

	"github.com/google/uuid"
)

type UserMessage struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID `gorm:"type:uuid;not null;index:idx_user_messages_user_created,priority:1"`
	Prompt           string    `gorm:"type:text;not null"`
	ResponseStreamId string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_messages_by_stream"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index:idx_user_messages_user_created,priority:2"`
}

func (UserMessage) TableName() string {
	return "user_messages"
}
