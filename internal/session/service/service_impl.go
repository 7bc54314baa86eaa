package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/geolocation"
	"github.com/smallbiznis/passage/internal/session/domain"
	"github.com/smallbiznis/passage/internal/token"
	"github.com/smallbiznis/passage/internal/useragent"
	"go.uber.org/zap"
)

type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	tokens *token.Engine
	geo    geolocation.Resolver
	genID  *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, tokens *token.Engine, geo geolocation.Resolver, genID *snowflake.Node) *Service {
	return &Service{
		log:    log.Named("session.service"),
		repo:   repo,
		tokens: tokens,
		geo:    geo,
		genID:  genID,
	}
}

// GenerateRequest carries the device context of a fresh login.
type GenerateRequest struct {
	UserID    snowflake.ID
	IPAddress string
	UserAgent string
}

// Generate mints a fresh access/refresh token pair and persists a new
// session row. It never touches other sessions for the user; enforcing
// the single-active-session policy is the login flow's job.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*domain.Issued, error) {
	accessToken, err := s.tokens.SignUserAccessToken(req.UserID.String())
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.SignUserRefreshToken(req.UserID.String(), time.Time{})
	if err != nil {
		return nil, err
	}

	parsed := useragent.Parse(req.UserAgent)
	session := &domain.Session{
		ID:           s.genID.Generate(),
		UserID:       req.UserID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(req.IPAddress),
		UserAgent:    strings.TrimSpace(req.UserAgent),
		Browser:      parsed.Browser,
		OS:           parsed.OS,
	}

	// Best effort: a provider outage must never block a login.
	if loc, err := s.geo.Resolve(ctx, session.IPAddress); err == nil {
		session.City = loc.City
		session.Region = loc.Region
		session.Timezone = loc.Timezone
		session.CountryCode = loc.CountryCode
	} else {
		s.log.Debug("geolocation lookup failed", zap.String("ip", session.IPAddress), zap.Error(err))
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.issued(session)
}

// Refresh verifies a refresh token and rotates the session's token pair
// in place. The new refresh token keeps the remaining lifetime of the
// original so a refresh chain can never extend past the first grant.
// A verify failure destroys the backing session before reporting
// token.ErrInvalidToken; a valid token with no live session fails with
// ErrSessionNotFound and mints nothing.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.Issued, error) {
	info, err := s.tokens.VerifyUserRefreshToken(refreshToken)
	if err != nil {
		if stale, findErr := s.repo.FindByRefreshToken(ctx, refreshToken); findErr == nil {
			if delErr := s.repo.DeleteByID(ctx, stale.ID); delErr != nil {
				s.log.Warn("destroy stale session", zap.Error(delErr))
			}
		}
		return nil, token.ErrInvalidToken
	}

	session, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	newAccess, err := s.tokens.SignUserAccessToken(info.UserID)
	if err != nil {
		return nil, err
	}
	newRefresh, err := s.tokens.SignUserRefreshToken(info.UserID, info.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTokens(ctx, session.ID, newAccess, newRefresh); err != nil {
		return nil, err
	}
	session.AccessToken = newAccess
	session.RefreshToken = newRefresh
	return s.issued(session)
}

// DestroyByAccessToken, DestroyByRefreshToken and DestroyByUser adapt
// the identifiers available at different call sites onto session-id
// deletes. All are idempotent: destroying what does not exist succeeds,
// so logout never leaks whether a credential was live.

func (s *Service) DestroyByAccessToken(ctx context.Context, accessToken string) error {
	session, err := s.repo.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return nil
		}
		return err
	}
	return s.repo.DeleteByID(ctx, session.ID)
}

func (s *Service) DestroyByRefreshToken(ctx context.Context, refreshToken string) error {
	session, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return nil
		}
		return err
	}
	return s.repo.DeleteByID(ctx, session.ID)
}

func (s *Service) DestroyByUser(ctx context.Context, userID snowflake.ID) error {
	return s.repo.DeleteByUser(ctx, userID)
}

// FindByAccessToken resolves a live session for a presented access
// token. The row lookup is what makes logout effective before expiry.
func (s *Service) FindByAccessToken(ctx context.Context, accessToken string) (*domain.Session, error) {
	return s.repo.FindByAccessToken(ctx, accessToken)
}

func (s *Service) FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.repo.FindByRefreshToken(ctx, refreshToken)
}

// ListForUser returns the user's sessions, newest first.
func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.Session, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) issued(session *domain.Session) (*domain.Issued, error) {
	accessInfo, err := s.tokens.VerifyUserAccessToken(session.AccessToken)
	if err != nil {
		return nil, err
	}
	refreshInfo, err := s.tokens.VerifyUserRefreshToken(session.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &domain.Issued{
		Session:          session,
		AccessExpiresIn:  accessInfo.ExpiresInSeconds(),
		RefreshExpiresAt: refreshInfo.ExpiresAt,
	}, nil
}
