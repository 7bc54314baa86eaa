// Package domain contains core types for one-time verification codes.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Code uses. A code minted for one use never validates for another.
const (
	UseLoginByEmail  = "LOGIN_BY_EMAIL"
	UseLoginByPhone  = "LOGIN_BY_PHONE"
	UseResetPassword = "RESET_PASSWORD"
)

// Code status values. At most one ACTIVE code exists per
// (identifier, use); minting a new one flips all prior ACTIVE codes
// INACTIVE in the same transaction.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// VerificationCode is a one-time code bound to an email address or
// phone number.
type VerificationCode struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Identifier string       `gorm:"column:identifier;type:text;not null;index:idx_verification_identifier_use"`
	Use        string       `gorm:"column:use;type:text;not null;index:idx_verification_identifier_use"`
	Code       string       `gorm:"column:code;type:text;not null"`
	Status     string       `gorm:"column:status;type:text;not null;default:ACTIVE"`
	ExpiredAt  time.Time    `gorm:"column:expired_at;not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VerificationCode) TableName() string { return "verification_codes" }

var (
	ErrInvalidCode  = errors.New("invalid or expired verification code")
	ErrCodeNotFound = errors.New("verification code not found")
)
