package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/subnet/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) domain.Repository {
	return &repo{db: gormDB}
}

func (r *repo) Create(ctx context.Context, subnet *domain.ApprovedSubnet) error {
	return r.db.WithContext(ctx).Create(subnet).Error
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.ApprovedSubnet, error) {
	var subnets []domain.ApprovedSubnet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subnets).Error
	if err != nil {
		return nil, err
	}
	return subnets, nil
}

// DeleteForUser scopes the delete to the owning user so one user can
// never remove another's approvals, and deletes of unknown ids succeed.
func (r *repo) DeleteForUser(ctx context.Context, userID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&domain.ApprovedSubnet{}).Error
}
