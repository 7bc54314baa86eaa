package domain

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByUUID(ctx context.Context, uuid string) (*User, error)
	FindOne(ctx context.Context, user User) (*User, error)
	FindByProfile(ctx context.Context, match ProfileMatch) ([]User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	List(ctx context.Context, limit, offset int) ([]User, error)
}

// ProfileMatch is the exact quadruple used by profile login. All four
// fields must match; zero or more than one matching user is a failure.
type ProfileMatch struct {
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth time.Time
}

// ParseProfileMatch builds the quadruple from request fields. The date
// of birth is accepted as YYYY-MM-DD or RFC 3339.
func ParseProfileMatch(firstName, middleName, lastName, dateOfBirth string) (ProfileMatch, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	dateOfBirth = strings.TrimSpace(dateOfBirth)
	if firstName == "" || lastName == "" || dateOfBirth == "" {
		return ProfileMatch{}, ErrInvalidProfile
	}
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		if dob, err = time.Parse(time.RFC3339, dateOfBirth); err != nil {
			return ProfileMatch{}, ErrInvalidProfile
		}
	}
	return ProfileMatch{
		FirstName:   firstName,
		MiddleName:  strings.TrimSpace(middleName),
		LastName:    lastName,
		DateOfBirth: dob,
	}, nil
}

type EmailRepository interface {
	Create(ctx context.Context, email *Email) error
	FindByID(ctx context.Context, id snowflake.ID) (*Email, error)
	FindForUser(ctx context.Context, userID snowflake.ID, address string) (*Email, error)
	MarkVerified(ctx context.Context, id snowflake.ID) error
}
