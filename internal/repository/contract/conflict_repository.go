package contract

import (
	"context"

	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConflictRepository interface {
	Create(ctx context.Context, conflict *entity.Conflict) error
	Update(ctx context.Context, conflict *entity.Conflict) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conflict, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conflict, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountByStatus(ctx context.Context, userId uuid.UUID) (map[string]int64, error)
}

type ConflictMessageRepository interface {
	Create(ctx context.Context, message *entity.ConflictMessage) error
	DeleteByConflictId(ctx context.Context, conflictId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConflictMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConflictMessage, error)
}
