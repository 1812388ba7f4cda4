package mapper

import (
	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/model"
)

type UserMessageMapper struct{}

func NewUserMessageMapper() *UserMessageMapper {
	return &UserMessageMapper{}
}

func (m *UserMessageMapper) ToEntity(msg *model.UserMessage) *entity.UserMessage {
	if msg == nil {
		return nil
	}
	return &entity.UserMessage{
		Id:               msg.Id,
		UserId:           msg.UserId,
		Prompt:           msg.Prompt,
		ResponseStreamId: msg.ResponseStreamId,
		CreatedAt:        msg.CreatedAt,
	}
}

func (m *UserMessageMapper) ToModel(msg *entity.UserMessage) *model.UserMessage {
	if msg == nil {
		return nil
	}
	return &model.UserMessage{
		Id:               msg.Id,
		UserId:           msg.UserId,
		Prompt:           msg.Prompt,
		ResponseStreamId: msg.ResponseStreamId,
		CreatedAt:        msg.CreatedAt,
	}
}

func (m *UserMessageMapper) ToEntities(messages []*model.UserMessage) []*entity.UserMessage {
	entities := make([]*entity.UserMessage, len(messages))
	for i, msg := range messages {
		entities[i] = m.ToEntity(msg)
	}
	return entities
}
