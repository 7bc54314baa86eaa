package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/config"
	"github.com/smallbiznis/passage/internal/verification/domain"
	"go.uber.org/zap"
)

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	security *config.SecurityConfigHolder
	genID    *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, security *config.SecurityConfigHolder, genID *snowflake.Node) *Service {
	return &Service{
		log:      log.Named("verification.service"),
		repo:     repo,
		security: security,
		genID:    genID,
	}
}

// TimeoutMinutes is the configured validity window of a minted code.
func (s *Service) TimeoutMinutes() int {
	return s.security.Get().VerificationCodeTimeoutMinutes
}

// Generated is the outcome of a code request. SecondsOfCountdown tells
// the client how long to disable the resend button.
type Generated struct {
	Code               string
	SecondsOfCountdown int
}

// GenerateForEmail mints (or re-serves) a code for an email identifier.
func (s *Service) GenerateForEmail(ctx context.Context, email, use string) (*Generated, error) {
	return s.generate(ctx, strings.ToLower(strings.TrimSpace(email)), use)
}

// GenerateForPhone mints (or re-serves) a code for a phone identifier.
func (s *Service) GenerateForPhone(ctx context.Context, phone, use string) (*Generated, error) {
	return s.generate(ctx, strings.TrimSpace(phone), use)
}

// generate returns the still-valid existing code when asked again
// within the resend window; otherwise it mints a new code and flips
// every prior ACTIVE code INACTIVE atomically.
func (s *Service) generate(ctx context.Context, identifier, use string) (*Generated, error) {
	cfg := s.security.Get()
	resendWindow := time.Duration(cfg.VerificationCodeResendMinutes) * time.Minute
	timeout := time.Duration(cfg.VerificationCodeTimeoutMinutes) * time.Minute

	now := time.Now().UTC()
	if existing, err := s.repo.FindActive(ctx, identifier, use); err == nil {
		age := now.Sub(existing.CreatedAt)
		if age < resendWindow && existing.ExpiredAt.After(now) {
			return &Generated{
				Code:               existing.Code,
				SecondsOfCountdown: int((resendWindow - age).Seconds()),
			}, nil
		}
	} else if err != domain.ErrCodeNotFound {
		return nil, err
	}

	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	record := &domain.VerificationCode{
		ID:         s.genID.Generate(),
		Identifier: identifier,
		Use:        use,
		Code:       code,
		Status:     domain.StatusActive,
		ExpiredAt:  now.Add(timeout),
		CreatedAt:  now,
	}
	if err := s.repo.ReplaceActive(ctx, record); err != nil {
		return nil, err
	}

	return &Generated{
		Code:               code,
		SecondsOfCountdown: int(resendWindow.Seconds()),
	}, nil
}

// ValidateForEmail consumes a code bound to an email identifier.
func (s *Service) ValidateForEmail(ctx context.Context, email, use, code string) error {
	return s.validate(ctx, strings.ToLower(strings.TrimSpace(email)), use, code)
}

// ValidateForPhone consumes a code bound to a phone identifier.
func (s *Service) ValidateForPhone(ctx context.Context, phone, use, code string) error {
	return s.validate(ctx, strings.TrimSpace(phone), use, code)
}

// validate checks the single ACTIVE code and consumes it on success.
// Expiry is enforced here, at lookup time; nothing sweeps stale rows.
func (s *Service) validate(ctx context.Context, identifier, use, code string) error {
	existing, err := s.repo.FindActive(ctx, identifier, use)
	if err != nil {
		if err == domain.ErrCodeNotFound {
			return domain.ErrInvalidCode
		}
		return err
	}
	if time.Now().UTC().After(existing.ExpiredAt) {
		return domain.ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(existing.Code), []byte(strings.TrimSpace(code))) != 1 {
		return domain.ErrInvalidCode
	}
	return s.repo.MarkInactive(ctx, existing.ID)
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
