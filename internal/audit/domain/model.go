// Package domain contains core types for the audit trail.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Recorded events.
const (
	EventSignup      = "auth.signup"
	EventLogin       = "auth.login"
	EventLoginFailed = "auth.login_failed"
	EventLogout      = "auth.logout"
	EventRefresh     = "auth.refresh"
)

// AuditLog is one recorded security event. UserID is nil when the
// actor could not be resolved (e.g. a failed login for an unknown
// account).
type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	UserID    *snowflake.ID     `gorm:"column:user_id;index"`
	Event     string            `gorm:"column:event;type:text;not null;index"`
	IPAddress *string           `gorm:"column:ip_address;type:text"`
	UserAgent *string           `gorm:"column:user_agent;type:text"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// ListFilter narrows a listing. Zero values mean "no constraint".
type ListFilter struct {
	UserID  *snowflake.ID
	Event   string
	StartAt *time.Time
	EndAt   *time.Time
	Limit   int
	Offset  int
}

type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

var (
	ErrInvalidEvent     = errors.New("invalid audit event")
	ErrInvalidTimeRange = errors.New("invalid audit time range")
)
