package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserMessage is one prompt of a user's general chat. The reply lives in the
// stream record named by ResponseStreamId.
type UserMessage struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	Prompt           string
	ResponseStreamId string
	CreatedAt        time.Time
}
