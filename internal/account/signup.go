package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	"github.com/smallbiznis/passage/internal/providers/email"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	"go.uber.org/zap"
)

// SignupRequest carries the self-service registration payload.
type SignupRequest struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Signup validates and creates an account. Outside production the
// email is verified on the spot so local logins work without a mail
// server; in production a confirmation link goes out instead. The
// signup network is pre-approved so the first login does not trip the
// location gate.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*userdomain.User, error) {
	user := &userdomain.User{
		ID:                   s.genID.Generate(),
		Email:                req.Email,
		CheckLocationOnLogin: true,
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		user.Phone = &v
	}
	if v := strings.TrimSpace(req.Username); v != "" {
		user.Username = &v
	}
	if v := strings.TrimSpace(req.FirstName); v != "" {
		user.FirstName = &v
	}
	if v := strings.TrimSpace(req.MiddleName); v != "" {
		user.MiddleName = &v
	}
	if v := strings.TrimSpace(req.LastName); v != "" {
		user.LastName = &v
	}
	if v := strings.TrimSpace(req.DateOfBirth); v != "" {
		dob, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, userdomain.ErrInvalidProfile
		}
		user.DateOfBirth = &dob
	}

	if err := userservice.PrepareUserWrite(user, req.Password); err != nil {
		return nil, err
	}
	s.enricher.Enrich(ctx, user)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.Email != "" {
		if err := s.attachEmail(ctx, user); err != nil {
			return nil, err
		}
	}

	if req.IPAddress != "" {
		if _, err := s.subnets.ApproveNewSubnet(ctx, user.ID, req.IPAddress); err != nil {
			s.log.Warn("approve signup subnet", zap.Error(err))
		}
	}

	s.audit.Record(ctx, &user.ID, auditdomain.EventSignup, nil)
	return user, nil
}

func (s *Service) attachEmail(ctx context.Context, user *userdomain.User) error {
	row := &userdomain.Email{
		ID:         s.genID.Generate(),
		UserID:     user.ID,
		Address:    user.Email,
		IsVerified: !s.cfg.IsProduction(),
	}
	if err := s.emails.Create(ctx, row); err != nil {
		return err
	}
	if row.IsVerified {
		return nil
	}

	verifyToken, err := s.tokens.SignApproveEmailToken(row.ID.String())
	if err != nil {
		return err
	}
	err = s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplateVerifyEmail, map[string]any{
		"name": user.Name,
		"link": fmt.Sprintf("%s/auth/verify-email?token=%s", s.cfg.FrontendURL, verifyToken),
	})
	if err != nil {
		// The account exists; the user can request another link.
		s.log.Error("send verification email", zap.Error(err))
	}
	return nil
}
