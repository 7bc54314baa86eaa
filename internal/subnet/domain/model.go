// Package domain contains core types for the subnet approval ledger.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ApprovedSubnet records a network a user has previously logged in
// from. Subnet holds a salted one-way hash of the anonymized IP; the
// raw subnet is never stored or compared in the clear.
type ApprovedSubnet struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index"`
	Subnet      string       `gorm:"column:subnet;type:text;not null"`
	City        string       `gorm:"column:city;type:text"`
	Region      string       `gorm:"column:region;type:text"`
	Timezone    string       `gorm:"column:timezone;type:text"`
	CountryCode string       `gorm:"column:country_code;type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ApprovedSubnet) TableName() string { return "approved_subnets" }

var ErrSubnetNotFound = errors.New("approved subnet not found")
