package account

import (
	"context"
	"errors"
	"strings"

	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userservice "github.com/smallbiznis/passage/internal/user/service"
)

// ErrWechatAccountNotFound means no account carries the presented
// openid and the caller did not ask for one to be created.
var ErrWechatAccountNotFound = errors.New("no account for this wechat openid")

// LoginByWechat resolves the account behind a mini-program openid and
// issues a session. The mini-program session is the credential, so
// both anomaly gates are skipped.
func (s *Service) LoginByWechat(ctx context.Context, openID string, attempt LoginAttempt) (*LoginResult, error) {
	user, err := s.findByWechatOpenID(ctx, openID)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, user, attempt, NoChecks())
}

// SignupByWechat creates an account bound to an openid, optionally
// with a phone number, then logs it in. An existing binding is reused
// rather than rejected so a retried signup converges on login.
func (s *Service) SignupByWechat(ctx context.Context, openID, phone string, attempt LoginAttempt) (*LoginResult, error) {
	user, err := s.findByWechatOpenID(ctx, openID)
	if errors.Is(err, ErrWechatAccountNotFound) {
		user, err = s.createWechatUser(ctx, openID, phone)
	}
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, user, attempt, NoChecks())
}

func (s *Service) findByWechatOpenID(ctx context.Context, openID string) (*userdomain.User, error) {
	openID = strings.TrimSpace(openID)
	if openID == "" {
		return nil, ErrWechatAccountNotFound
	}
	user, err := s.userRepo.FindOne(ctx, userdomain.User{WechatOpenID: &openID})
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return nil, ErrWechatAccountNotFound
	}
	return user, err
}

func (s *Service) createWechatUser(ctx context.Context, openID, phone string) (*userdomain.User, error) {
	openID = strings.TrimSpace(openID)
	user := &userdomain.User{
		ID:                   s.genID.Generate(),
		WechatOpenID:         &openID,
		CheckLocationOnLogin: true,
	}
	if v := strings.TrimSpace(phone); v != "" {
		user.Phone = &v
	}
	if err := userservice.PrepareUserWrite(user, ""); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &user.ID, auditdomain.EventSignup, map[string]any{"provider": "wechat"})
	return user, nil
}
