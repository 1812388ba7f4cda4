package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByCreator struct {
	UserID uuid.UUID
}

func (s ByCreator) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_by = ?", s.UserID)
}

type ByConflictID struct {
	ConflictID uuid.UUID
}

func (s ByConflictID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conflict_id = ?", s.ConflictID)
}

// ByResponseStreamID uses the by_stream unique index.
type ByResponseStreamID struct {
	StreamID string
}

func (s ByResponseStreamID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("response_stream_id = ?", s.StreamID)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ByMessageType struct {
	Type string
}

func (s ByMessageType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}
