// Package authorization answers "may this user perform this action on
// this resource kind" after authentication has already produced a
// principal. Grants come from Permission rows addressed to a user, a
// role, or an organization membership.
package authorization

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActionManage on a stored permission matches any requested action on
// its resource.
const ActionManage = "Manage"

// ErrPermissionDenied is returned when no grant matches across all
// three tiers.
var ErrPermissionDenied = errors.New("permission denied")

// Resource kinds with guarded endpoints.
const (
	ResourceUser     = "User"
	ResourceAuditLog = "AuditLog"
)

// Common actions.
const (
	ActionList   = "List"
	ActionRead   = "Read"
	ActionWrite  = "Write"
	ActionDelete = "Delete"
)

// Permission grants an action on a resource kind to exactly one of a
// user, a role, or an organization membership.
type Permission struct {
	ID                  snowflake.ID  `gorm:"primaryKey"`
	Resource            string        `gorm:"column:resource;type:text;not null;index"`
	Action              string        `gorm:"column:action;type:text;not null"`
	TrustedUserID       *snowflake.ID `gorm:"column:trusted_user_id;index"`
	TrustedUserRole     *string       `gorm:"column:trusted_user_role;type:text"`
	TrustedMembershipID *snowflake.ID `gorm:"column:trusted_membership_id;index"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Permission) TableName() string { return "permissions" }

// Membership ties a user to an organization with a role. Memberships
// only matter here as grant targets.
type Membership struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	UserID         snowflake.ID `gorm:"column:user_id;not null;index"`
	OrganizationID snowflake.ID `gorm:"column:organization_id;not null;index"`
	Role           string       `gorm:"column:role;type:text;not null"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

type Service struct {
	log *zap.Logger
	db  *gorm.DB
}

func New(log *zap.Logger, db *gorm.DB) *Service {
	return &Service{
		log: log.Named("authorization"),
		db:  db,
	}
}

// Can reports whether the user may perform action on resource. ADMIN
// short-circuits everything; otherwise membership grants are checked
// first, then role grants, then per-user grants, allowing on the first
// match. No match anywhere is a deny, which the HTTP layer turns into
// a 403.
func (s *Service) Can(ctx context.Context, user *userdomain.User, resource, action string) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.HasRole(userdomain.RoleAdmin) {
		return true, nil
	}

	var permissions []Permission
	err := s.db.WithContext(ctx).
		Where("resource = ? AND action IN ?", resource, []string{action, ActionManage}).
		Find(&permissions).Error
	if err != nil {
		return false, err
	}
	if len(permissions) == 0 {
		return false, nil
	}

	membershipIDs, err := s.membershipIDs(ctx, user.ID)
	if err != nil {
		return false, err
	}

	for _, p := range permissions {
		if p.TrustedMembershipID == nil {
			continue
		}
		if _, ok := membershipIDs[*p.TrustedMembershipID]; ok {
			return true, nil
		}
	}
	for _, p := range permissions {
		if p.TrustedUserRole != nil && user.HasRole(*p.TrustedUserRole) {
			return true, nil
		}
	}
	for _, p := range permissions {
		if p.TrustedUserID != nil && *p.TrustedUserID == user.ID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) membershipIDs(ctx context.Context, userID snowflake.ID) (map[snowflake.ID]struct{}, error) {
	var memberships []Membership
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	ids := make(map[snowflake.ID]struct{}, len(memberships))
	for _, m := range memberships {
		ids[m.ID] = struct{}{}
	}
	return ids, nil
}
