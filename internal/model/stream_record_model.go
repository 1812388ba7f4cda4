package model

import (
	"time"

	"github.com/google/uuid"
)

type StreamRecord struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Text       string    `gorm:"type:text;not null;default:''"`
	Status     string    `gorm:"type:varchar(16);not null;default:'pending';index:idx_stream_records_status_updated,priority:1"`
	Generation int64     `gorm:"not null;default:0"`
	OwnerType  *string   `gorm:"type:varchar(64);index:idx_stream_records_owner,priority:1"`
	OwnerId    *string   `gorm:"type:varchar(64);index:idx_stream_records_owner,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"index:idx_stream_records_status_updated,priority:2"`
}

func (StreamRecord) TableName() string {
	return "stream_records"
}
