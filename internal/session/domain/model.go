// Package domain contains core types for the session store.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session binds a user to a live access/refresh token pair plus device
// and location metadata. The row is the source of truth for whether a
// token is still live; destroying the row kills both tokens regardless
// of their signed expiry.
type Session struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       snowflake.ID `gorm:"column:user_id;not null;index"`
	AccessToken  string       `gorm:"column:access_token;type:text;not null;uniqueIndex"`
	RefreshToken string       `gorm:"column:refresh_token;type:text;not null;uniqueIndex"`
	IPAddress    string       `gorm:"column:ip_address;type:text"`
	UserAgent    string       `gorm:"column:user_agent;type:text"`
	Browser      string       `gorm:"column:browser;type:text"`
	OS           string       `gorm:"column:os;type:text"`
	City         string       `gorm:"column:city;type:text"`
	Region       string       `gorm:"column:region;type:text"`
	Timezone     string       `gorm:"column:timezone;type:text"`
	CountryCode  string       `gorm:"column:country_code;type:text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Issued is a freshly generated or rotated session together with the
// decoded expiries clients need: access lifetime in seconds for the
// response body, refresh expiry for the cookie.
type Issued struct {
	Session          *Session
	AccessExpiresIn  int64
	RefreshExpiresAt time.Time
}

var ErrSessionNotFound = errors.New("session not found")
