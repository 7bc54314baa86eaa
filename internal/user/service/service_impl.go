package service

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/passage/internal/user/domain"
	"github.com/smallbiznis/passage/internal/user/password"
	"go.uber.org/zap"
)

// AccountKind classifies a login identifier string.
type AccountKind string

const (
	AccountEmail    AccountKind = "email"
	AccountPhone    AccountKind = "phone"
	AccountUsername AccountKind = "username"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{5,15}$`)

// ClassifyAccount decides which field a login identifier addresses.
// Precedence is email, then phone, then username; an identifier that
// parses as an email always resolves via the email path even when the
// same string exists as a username.
func ClassifyAccount(account string) AccountKind {
	account = strings.TrimSpace(account)
	if _, err := mail.ParseAddress(account); err == nil && strings.Contains(account, "@") {
		return AccountEmail
	}
	if phonePattern.MatchString(account) {
		return AccountPhone
	}
	return AccountUsername
}

// PrepareUserWrite normalizes and validates a user record before any
// create or update reaches storage: email lowercased, password
// strength-checked then hashed, display name derived. Every write path
// goes through here so the at-rest invariants live in one place.
func PrepareUserWrite(user *domain.User, plainPassword string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email != "" {
		if _, err := mail.ParseAddress(user.Email); err != nil {
			return domain.ErrInvalidEmailFormat
		}
	}
	if user.Username != nil {
		trimmed := strings.TrimSpace(*user.Username)
		if trimmed == "" {
			user.Username = nil
		} else {
			user.Username = &trimmed
		}
	}

	if user.Email == "" && user.Phone == nil && user.Username == nil && user.WechatOpenID == nil {
		return domain.ErrMissingIdentifier
	}

	if plainPassword != "" {
		if !password.IsStrong(plainPassword) {
			return domain.ErrWeakPassword
		}
		hashed, err := password.Hash(plainPassword)
		if err != nil {
			return err
		}
		user.Password = &hashed
	}

	if user.UUID == "" {
		user.UUID = uuid.NewString()
	}
	if strings.TrimSpace(user.Name) == "" {
		user.Name = deriveDisplayName(user)
	}
	if user.Status == "" {
		user.Status = domain.StatusActive
	}
	return nil
}

func deriveDisplayName(user *domain.User) string {
	var parts []string
	for _, p := range []*string{user.FirstName, user.MiddleName, user.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if user.Email != "" {
		local, _, found := strings.Cut(user.Email, "@")
		if found && local != "" {
			return local
		}
	}
	if user.Username != nil {
		return *user.Username
	}
	return ""
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(log *zap.Logger, repo domain.Repository) *Service {
	return &Service{
		log:  log.Named("user.service"),
		repo: repo,
	}
}

// FindByAccount resolves a login identifier to a user with exactly one
// lookup against the classified field.
func (s *Service) FindByAccount(ctx context.Context, account string) (*domain.User, error) {
	account = strings.TrimSpace(account)
	switch ClassifyAccount(account) {
	case AccountEmail:
		return s.repo.FindOne(ctx, domain.User{Email: strings.ToLower(account)})
	case AccountPhone:
		return s.repo.FindOne(ctx, domain.User{Phone: &account})
	default:
		return s.repo.FindOne(ctx, domain.User{Username: &account})
	}
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) FindByUUID(ctx context.Context, uuid string) (*domain.User, error) {
	return s.repo.FindByUUID(ctx, uuid)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.repo.List(ctx, limit, offset)
}

// FindByProfile resolves the exact profile quadruple. An ambiguous or
// empty match is rejected; profile login is not a fuzzy fallback.
func (s *Service) FindByProfile(ctx context.Context, match domain.ProfileMatch) (*domain.User, error) {
	users, err := s.repo.FindByProfile(ctx, match)
	if err != nil {
		return nil, err
	}
	if len(users) != 1 {
		return nil, domain.ErrAmbiguousProfileMatch
	}
	return &users[0], nil
}

// VerifyPassword checks a plaintext password for a user, distinguishing
// the password-less account case from a plain mismatch.
func (s *Service) VerifyPassword(user *domain.User, plain string) error {
	if !user.IsActive() {
		return domain.ErrInactiveUser
	}
	if user.Password == nil || *user.Password == "" {
		return domain.ErrNoPasswordSet
	}
	if !password.Verify(plain, *user.Password) {
		return domain.ErrWrongCredentials
	}
	return nil
}

// TouchLastLogin records a successful login without failing the flow.
func (s *Service) TouchLastLogin(ctx context.Context, user *domain.User) {
	now := time.Now().UTC()
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		s.log.Warn("update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	user.LastLoginAt = &now
}
