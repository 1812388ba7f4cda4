package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conflict-resolution-be/internal/model"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/pkg/textstream"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var liveStatuses = []string{
	string(textstream.StatusPending),
	string(textstream.StatusStreaming),
}

// StreamRecordRepositoryImpl stores stream records in postgres. Appends take
// a row lock, so concurrent writers on one id are serialized by the database.
type StreamRecordRepositoryImpl struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStreamRecordRepository(db *gorm.DB) contract.StreamRecordRepository {
	return &StreamRecordRepositoryImpl{
		db:  db,
		now: time.Now,
	}
}

func parseStreamID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, textstream.ErrNotFound
	}
	return uid, nil
}

func (r *StreamRecordRepositoryImpl) Create(ctx context.Context) (string, error) {
	return r.CreateOwned(ctx, textstream.Owner{})
}

func (r *StreamRecordRepositoryImpl) CreateOwned(ctx context.Context, owner textstream.Owner) (string, error) {
	m := &model.StreamRecord{
		Id:        uuid.New(),
		Status:    string(textstream.StatusPending),
		UpdatedAt: r.now(),
	}
	if !owner.IsZero() {
		m.OwnerType = &owner.Type
		m.OwnerId = &owner.ID
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return "", fmt.Errorf("create stream record: %w", err)
	}
	return m.Id.String(), nil
}

func (r *StreamRecordRepositoryImpl) Append(ctx context.Context, id, fragment string) (int64, error) {
	uid, err := parseStreamID(id)
	if err != nil {
		return 0, err
	}

	var generation int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.StreamRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status", "generation").
			Where("id = ?", uid).
			First(&m).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return textstream.ErrNotFound
			}
			return err
		}
		if textstream.Status(m.Status).IsTerminal() {
			generation = m.Generation
			return textstream.ErrTerminalState
		}

		generation = m.Generation + 1
		return tx.Model(&model.StreamRecord{}).
			Where("id = ?", uid).
			Updates(map[string]interface{}{
				"text":       gorm.Expr("text || ?", fragment),
				"status":     string(textstream.StatusStreaming),
				"generation": generation,
				"updated_at": r.now(),
			}).Error
	})
	return generation, err
}

func (r *StreamRecordRepositoryImpl) Finalize(ctx context.Context, id string, outcome textstream.Status) error {
	if outcome != textstream.StatusDone && outcome != textstream.StatusError {
		return textstream.ErrInvalidOutcome
	}
	uid, err := parseStreamID(id)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&model.StreamRecord{}).
		Where("id = ? AND status IN ?", uid, liveStatuses).
		Updates(map[string]interface{}{
			"status":     string(outcome),
			"updated_at": r.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing updated: either already terminal (idempotent) or missing.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.StreamRecord{}).Where("id = ?", uid).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return textstream.ErrNotFound
	}
	return nil
}

func (r *StreamRecordRepositoryImpl) Read(ctx context.Context, id string) (textstream.Snapshot, error) {
	uid, err := parseStreamID(id)
	if err != nil {
		return textstream.Snapshot{}, err
	}

	var m model.StreamRecord
	if err := r.db.WithContext(ctx).Where("id = ?", uid).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return textstream.Snapshot{}, textstream.ErrNotFound
		}
		return textstream.Snapshot{}, err
	}
	return textstream.Snapshot{
		ID:         m.Id.String(),
		Text:       m.Text,
		Status:     textstream.Status(m.Status),
		Generation: m.Generation,
	}, nil
}

func (r *StreamRecordRepositoryImpl) FindOwner(ctx context.Context, id string) (textstream.Owner, error) {
	uid, err := parseStreamID(id)
	if err != nil {
		return textstream.Owner{}, err
	}

	var m model.StreamRecord
	err = r.db.WithContext(ctx).
		Select("id", "owner_type", "owner_id").
		Where("id = ?", uid).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return textstream.Owner{}, textstream.ErrNotFound
		}
		return textstream.Owner{}, err
	}

	var owner textstream.Owner
	if m.OwnerType != nil {
		owner.Type = *m.OwnerType
	}
	if m.OwnerId != nil {
		owner.ID = *m.OwnerId
	}
	return owner, nil
}

func (r *StreamRecordRepositoryImpl) ExpireIdle(ctx context.Context, before time.Time) ([]string, error) {
	var expired []model.StreamRecord
	err := r.db.WithContext(ctx).
		Model(&expired).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("status IN ? AND updated_at < ?", liveStatuses, before).
		Updates(map[string]interface{}{
			"status":     string(textstream.StatusTimeout),
			"updated_at": r.now(),
		}).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(expired))
	for i, m := range expired {
		ids[i] = m.Id.String()
	}
	return ids, nil
}
