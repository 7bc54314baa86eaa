package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/passage/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) domain.Repository {
	return &repo{db: gormDB}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.AuditLog, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.AuditLog{})

	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if event := strings.TrimSpace(filter.Event); event != "" {
		stmt = stmt.Where("event = ?", event)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []domain.AuditLog
	err := stmt.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
