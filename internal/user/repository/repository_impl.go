package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/user/domain"
	"github.com/smallbiznis/passage/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

type emailRepo struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) (domain.Repository, domain.EmailRepository) {
	return &repo{db: gormDB}, &emailRepo{db: gormDB}
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrConflictingAccount
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByUUID(ctx context.Context, uuid string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("uuid = ?", strings.TrimSpace(uuid)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindOne(ctx context.Context, user domain.User) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where(user).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) FindByProfile(ctx context.Context, match domain.ProfileMatch) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("first_name = ? AND COALESCE(middle_name, '') = ? AND last_name = ? AND date_of_birth = ?",
			match.FirstName, match.MiddleName, match.LastName, match.DateOfBirth).
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{}).Error
}

func (r *repo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var users []domain.User
	err := r.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *emailRepo) Create(ctx context.Context, email *domain.Email) error {
	return r.db.WithContext(ctx).Create(email).Error
}

func (r *emailRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Email, error) {
	var email domain.Email
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *emailRepo) FindForUser(ctx context.Context, userID snowflake.ID, address string) (*domain.Email, error) {
	var email domain.Email
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND address = ?", userID, strings.ToLower(strings.TrimSpace(address))).
		First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *emailRepo) MarkVerified(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Model(&domain.Email{}).Where("id = ?", id).Update("is_verified", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrEmailNotFound
	}
	return nil
}
