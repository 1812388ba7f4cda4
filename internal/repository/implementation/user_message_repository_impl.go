package implementation

import (
	"context"
	"errors"

	"conflict-resolution-be/internal/entity"
	"conflict-resolution-be/internal/mapper"
	"conflict-resolution-be/internal/model"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMessageMapper
}

func NewUserMessageRepository(db *gorm.DB) contract.UserMessageRepository {
	return &UserMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMessageMapper(),
	}
}

func (r *UserMessageRepositoryImpl) Create(ctx context.Context, message *entity.UserMessage) error {
	m := r.mapper.ToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ToEntity(m)
	return nil
}

func (r *UserMessageRepositoryImpl) DeleteByUserId(ctx context.Context, userId uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.UserMessage{})
	return res.RowsAffected, res.Error
}

func (r *UserMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserMessage, error) {
	var m model.UserMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UserMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserMessage, error) {
	var models []*model.UserMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
