// Package domain contains core types for user API keys.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey is a machine credential owned by a user. Only the sha256 of
// the secret is stored; the plaintext secret is shown once at creation.
type APIKey struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	UserID     snowflake.ID   `gorm:"column:user_id;not null;index"`
	KeyID      string         `gorm:"column:key_id;type:text;not null;uniqueIndex"`
	Name       string         `gorm:"type:text;not null"`
	Scopes     pq.StringArray `gorm:"type:text[]"`
	SecretHash string         `gorm:"column:secret_hash;type:text;not null"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// HashSecret hashes a raw API secret with the same strategy used at
// key creation.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

var (
	ErrKeyNotFound    = errors.New("api key not found")
	ErrSecretMismatch = errors.New("api key secret mismatch")
	ErrInvalidName    = errors.New("api key name is required")
)
