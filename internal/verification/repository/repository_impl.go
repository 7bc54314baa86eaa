package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/verification/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) domain.Repository {
	return &repo{db: gormDB}
}

func (r *repo) ReplaceActive(ctx context.Context, code *domain.VerificationCode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.VerificationCode{}).
			Where("identifier = ? AND use = ? AND status = ?", code.Identifier, code.Use, domain.StatusActive).
			Update("status", domain.StatusInactive).Error
		if err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

func (r *repo) FindActive(ctx context.Context, identifier, use string) (*domain.VerificationCode, error) {
	var code domain.VerificationCode
	err := r.db.WithContext(ctx).
		Where("identifier = ? AND use = ? AND status = ?", identifier, use, domain.StatusActive).
		Order("created_at DESC").
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repo) MarkInactive(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Model(&domain.VerificationCode{}).
		Where("id = ?", id).
		Update("status", domain.StatusInactive).Error
}
