package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatMessageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type SendChatMessageResponse struct {
	MessageId uuid.UUID `json:"message_id"`
	StreamId  string    `json:"stream_id"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID           `json:"id"`
	Prompt    string              `json:"prompt"`
	StreamId  string              `json:"stream_id"`
	Response  *StreamBodyResponse `json:"response,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type ClearChatMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}
