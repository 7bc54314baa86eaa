// Package domain contains core types for the user service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// User status values.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// RoleAdmin grants every permission check unconditionally.
const RoleAdmin = "ADMIN"

// Gender values the enrichment pipeline may infer.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// User represents an account identity. At least one of email, phone,
// username or wechat open id must be set; password is nullable so
// code-only and OAuth-only accounts can exist.
type User struct {
	ID                   snowflake.ID      `gorm:"primaryKey"`
	UUID                 string            `gorm:"column:uuid;type:text;not null;uniqueIndex"`
	Email                string            `gorm:"column:email;type:text;uniqueIndex:idx_users_email,where:email <> ''"`
	Phone                *string           `gorm:"column:phone;type:text;uniqueIndex"`
	Username             *string           `gorm:"column:username;type:text;uniqueIndex"`
	Password             *string           `gorm:"column:password;type:text"`
	Name                 string            `gorm:"column:name;type:text"`
	FirstName            *string           `gorm:"column:first_name;type:text"`
	MiddleName           *string           `gorm:"column:middle_name;type:text"`
	LastName             *string           `gorm:"column:last_name;type:text"`
	DateOfBirth          *time.Time        `gorm:"column:date_of_birth"`
	Gender               *string           `gorm:"column:gender;type:text"`
	AvatarURL            *string           `gorm:"column:avatar_url;type:text"`
	Roles                pq.StringArray    `gorm:"column:roles;type:text[]"`
	Status               string            `gorm:"column:status;type:text;not null;default:ACTIVE"`
	CheckLocationOnLogin bool              `gorm:"column:check_location_on_login;not null;default:true"`
	LastLoginAt          *time.Time        `gorm:"column:last_login_at"`
	WechatOpenID         *string           `gorm:"column:wechat_open_id;type:text;uniqueIndex"`
	Attributes           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.Status == StatusActive }

// HasRole reports whether the user carries the given role tag.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Email is an address attached to a user. A login that requires a
// verified email must find a row for the user's primary address with
// IsVerified set.
type Email struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index"`
	Address    string       `gorm:"column:address;type:text;not null;index"`
	IsVerified bool         `gorm:"column:is_verified;not null;default:false"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Email) TableName() string { return "emails" }
