package unitofwork

import (
	"context"

	"conflict-resolution-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConflictRepository() contract.ConflictRepository
	ConflictMessageRepository() contract.ConflictMessageRepository
	UserMessageRepository() contract.UserMessageRepository
}
