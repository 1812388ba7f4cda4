package mapper

import (
	"encoding/json"
	"time"

	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConflictMapper struct{}

func NewConflictMapper() *ConflictMapper {
	return &ConflictMapper{}
}

func (m *ConflictMapper) ToEntity(c *model.Conflict) *entity.Conflict {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	var completion *entity.ConflictCompletion
	if len(c.Completion) > 0 && string(c.Completion) != "null" {
		var cc entity.ConflictCompletion
		if err := json.Unmarshal(c.Completion, &cc); err == nil {
			completion = &cc
		}
	}

	var responses []entity.CreatorResponse
	if len(c.CreatorResponses) > 0 && string(c.CreatorResponses) != "null" {
		_ = json.Unmarshal(c.CreatorResponses, &responses)
	}

	var analysis *entity.ConflictAnalysis
	if len(c.Analysis) > 0 && string(c.Analysis) != "null" {
		var a entity.ConflictAnalysis
		if err := json.Unmarshal(c.Analysis, &a); err == nil {
			analysis = &a
		}
	}

	return &entity.Conflict{
		Id:                 c.Id,
		Title:              c.Title,
		Description:        c.Description,
		CreatedBy:          c.CreatedBy,
		CreatorEmail:       c.CreatorEmail,
		Status:             c.Status,
		InterviewCompleted: c.InterviewCompleted,
		Completion:         completion,
		CreatorResponses:   responses,
		Analysis:           analysis,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
		IsDeleted:          c.DeletedAt.Valid,
	}
}

func (m *ConflictMapper) ToModel(c *entity.Conflict) *model.Conflict {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	var completion datatypes.JSON
	if c.Completion != nil {
		if raw, err := json.Marshal(c.Completion); err == nil {
			completion = raw
		}
	}

	var responses datatypes.JSON
	if len(c.CreatorResponses) > 0 {
		if raw, err := json.Marshal(c.CreatorResponses); err == nil {
			responses = raw
		}
	}

	var analysis datatypes.JSON
	if c.Analysis != nil {
		if raw, err := json.Marshal(c.Analysis); err == nil {
			analysis = raw
		}
	}

	return &model.Conflict{
		Id:                 c.Id,
		Title:              c.Title,
		Description:        c.Description,
		CreatedBy:          c.CreatedBy,
		CreatorEmail:       c.CreatorEmail,
		Status:             c.Status,
		InterviewCompleted: c.InterviewCompleted,
		Completion:         completion,
		CreatorResponses:   responses,
		Analysis:           analysis,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
	}
}

func (m *ConflictMapper) ToEntities(conflicts []*model.Conflict) []*entity.Conflict {
	entities := make([]*entity.Conflict, len(conflicts))
	for i, c := range conflicts {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ConflictMapper) MessageToEntity(msg *model.ConflictMessage) *entity.ConflictMessage {
	if msg == nil {
		return nil
	}
	return &entity.ConflictMessage{
		Id:               msg.Id,
		ConflictId:       msg.ConflictId,
		UserId:           msg.UserId,
		Prompt:           msg.Prompt,
		ResponseStreamId: msg.ResponseStreamId,
		Type:             msg.Type,
		CreatedAt:        msg.CreatedAt,
	}
}

func (m *ConflictMapper) MessageToModel(msg *entity.ConflictMessage) *model.ConflictMessage {
	if msg == nil {
		return nil
	}
	return &model.ConflictMessage{
		Id:               msg.Id,
		ConflictId:       msg.ConflictId,
		UserId:           msg.UserId,
		Prompt:           msg.Prompt,
		ResponseStreamId: msg.ResponseStreamId,
		Type:             msg.Type,
		CreatedAt:        msg.CreatedAt,
	}
}

func (m *ConflictMapper) MessagesToEntities(messages []*model.ConflictMessage) []*entity.ConflictMessage {
	entities := make([]*entity.ConflictMessage, len(messages))
	for i, msg := range messages {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
