package server

import (
	"time"

	sessiondomain "github.com/smallbiznis/passage/internal/session/domain"
	subnetdomain "github.com/smallbiznis/passage/internal/subnet/domain"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
)

// userView is the public projection of an account. The gorm model
// carries the password hash, so it never serializes directly.
type userView struct {
	ID                   string     `json:"id"`
	UUID                 string     `json:"uuid"`
	Email                string     `json:"email,omitempty"`
	Phone                *string    `json:"phone,omitempty"`
	Username             *string    `json:"username,omitempty"`
	Name                 string     `json:"name,omitempty"`
	FirstName            *string    `json:"firstName,omitempty"`
	MiddleName           *string    `json:"middleName,omitempty"`
	LastName             *string    `json:"lastName,omitempty"`
	Gender               *string    `json:"gender,omitempty"`
	AvatarURL            *string    `json:"avatarUrl,omitempty"`
	Roles                []string   `json:"roles,omitempty"`
	Status               string     `json:"status"`
	CheckLocationOnLogin bool       `json:"checkLocationOnLogin"`
	LastLoginAt          *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func newUserView(u *userdomain.User) userView {
	return userView{
		ID:                   u.ID.String(),
		UUID:                 u.UUID,
		Email:                u.Email,
		Phone:                u.Phone,
		Username:             u.Username,
		Name:                 u.Name,
		FirstName:            u.FirstName,
		MiddleName:           u.MiddleName,
		LastName:             u.LastName,
		Gender:               u.Gender,
		AvatarURL:            u.AvatarURL,
		Roles:                u.Roles,
		Status:               u.Status,
		CheckLocationOnLogin: u.CheckLocationOnLogin,
		LastLoginAt:          u.LastLoginAt,
		CreatedAt:            u.CreatedAt,
	}
}

// sessionView lists a live session without its tokens.
type sessionView struct {
	ID          string    `json:"id"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Browser     string    `json:"browser,omitempty"`
	OS          string    `json:"os,omitempty"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	CountryCode string    `json:"countryCode,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newSessionView(s sessiondomain.Session) sessionView {
	return sessionView{
		ID:          s.ID.String(),
		IPAddress:   s.IPAddress,
		UserAgent:   s.UserAgent,
		Browser:     s.Browser,
		OS:          s.OS,
		City:        s.City,
		Region:      s.Region,
		CountryCode: s.CountryCode,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type subnetView struct {
	ID        string    `json:"id"`
	Subnet    string    `json:"subnet"`
	City      string    `json:"city,omitempty"`
	Region    string    `json:"region,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newSubnetView(s subnetdomain.ApprovedSubnet) subnetView {
	return subnetView{
		ID:        s.ID.String(),
		Subnet:    s.Subnet,
		City:      s.City,
		Region:    s.Region,
		Timezone:  s.Timezone,
		CreatedAt: s.CreatedAt,
	}
}
