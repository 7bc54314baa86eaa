package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/session/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) domain.Repository {
	return &repo{db: gormDB}
}

func (r *repo) Create(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByAccessToken(ctx context.Context, accessToken string) (*domain.Session, error) {
	return r.findOne(ctx, "access_token = ?", accessToken)
}

func (r *repo) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return r.findOne(ctx, "refresh_token = ?", refreshToken)
}

func (r *repo) findOne(ctx context.Context, query string, arg any) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where(query, arg).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateTokens rotates the token pair in place. The session keeps its
// identity; only the credential strings change.
func (r *repo) UpdateTokens(ctx context.Context, id snowflake.ID, accessToken, refreshToken string) error {
	tx := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Updates(map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"updated_at":    time.Now().UTC(),
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) DeleteByID(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
}

func (r *repo) DeleteByUser(ctx context.Context, userID snowflake.ID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Session{}).Error
}
