package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) domain.Repository {
	return &repo{db: gormDB}
}

func (r *repo) Create(ctx context.Context, key *domain.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *repo) FindByKeyID(ctx context.Context, keyID string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Where("key_id = ?", keyID).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) TouchLastUsed(ctx context.Context, id snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (r *repo) Deactivate(ctx context.Context, userID snowflake.ID, keyID string) error {
	return r.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("user_id = ? AND key_id = ?", userID, keyID).
		Update("is_active", false).Error
}
