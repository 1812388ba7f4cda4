package contract

import (
	"context"

	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserMessageRepository interface {
	Create(ctx context.Context, message *entity.UserMessage) error
	DeleteByUserId(ctx context.Context, userId uuid.UUID) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMessage, error)
}
