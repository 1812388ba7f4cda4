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

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

type ConflictRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConflictMapper
}

func NewConflictRepository(db *gorm.DB) contract.ConflictRepository {
	return &ConflictRepositoryImpl{
		db:     db,
		mapper: mapper.NewConflictMapper(),
	}
}

func (r *ConflictRepositoryImpl) Create(ctx context.Context, conflict *entity.Conflict) error {
	m := r.mapper.ToModel(conflict)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conflict = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConflictRepositoryImpl) Update(ctx context.Context, conflict *entity.Conflict) error {
	m := r.mapper.ToModel(conflict)
	if err := r.db.WithContext(ctx).Omit("Messages").Save(m).Error; err != nil {
		return err
	}
	*conflict = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConflictRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Conflict{}).Error
}

func (r *ConflictRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conflict, error) {
	var m model.Conflict
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ConflictRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conflict, error) {
	var models []*model.Conflict
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ConflictRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Conflict{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ConflictRepositoryImpl) CountByStatus(ctx context.Context, userId uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Conflict{}).
		Select("status, COUNT(*) AS total").
		Where("created_by = ?", userId).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

type ConflictMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConflictMapper
}

func NewConflictMessageRepository(db *gorm.DB) contract.ConflictMessageRepository {
	return &ConflictMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewConflictMapper(),
	}
}

func (r *ConflictMessageRepositoryImpl) Create(ctx context.Context, message *entity.ConflictMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *ConflictMessageRepositoryImpl) DeleteByConflictId(ctx context.Context, conflictId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("conflict_id = ?", conflictId).Delete(&model.ConflictMessage{}).Error
}

func (r *ConflictMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConflictMessage, error) {
	var m model.ConflictMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MessageToEntity(&m), nil
}

func (r *ConflictMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConflictMessage, error) {
	var models []*model.ConflictMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}
