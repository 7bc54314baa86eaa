package account

import (
	"context"
	"errors"

	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	"github.com/smallbiznis/passage/internal/google"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	"go.uber.org/zap"
)

// LoginByGoogle signs in the account behind a Google profile, creating
// it on first contact. The provider already attested the email, so the
// email gate is skipped; the location gate still applies to returning
// users.
func (s *Service) LoginByGoogle(ctx context.Context, profile *google.Profile, attempt LoginAttempt) (*LoginResult, error) {
	user, err := s.users.FindByAccount(ctx, profile.Email)
	if errors.Is(err, userdomain.ErrUserNotFound) {
		user, err = s.signupFromGoogle(ctx, profile, attempt)
	}
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, user, attempt, LoginChecks{KnownSubnet: true})
}

func (s *Service) signupFromGoogle(ctx context.Context, profile *google.Profile, attempt LoginAttempt) (*userdomain.User, error) {
	user := &userdomain.User{
		ID:                   s.genID.Generate(),
		Email:                profile.Email,
		Name:                 profile.DisplayName,
		CheckLocationOnLogin: true,
	}
	if profile.Picture != "" {
		picture := profile.Picture
		user.AvatarURL = &picture
	}

	// Password-less account; the provider is the credential.
	if err := userservice.PrepareUserWrite(user, ""); err != nil {
		return nil, err
	}
	s.enricher.Enrich(ctx, user)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	row := &userdomain.Email{
		ID:         s.genID.Generate(),
		UserID:     user.ID,
		Address:    user.Email,
		IsVerified: true,
	}
	if err := s.emails.Create(ctx, row); err != nil {
		return nil, err
	}
	if attempt.IPAddress != "" {
		if _, err := s.subnets.ApproveNewSubnet(ctx, user.ID, attempt.IPAddress); err != nil {
			s.log.Warn("approve signup subnet", zap.Error(err))
		}
	}

	s.audit.Record(ctx, &user.ID, auditdomain.EventSignup, map[string]any{"provider": "google"})
	return user, nil
}
