// Package account orchestrates the signup and login flows: anomaly
// gates, session issuance, verification emails and the always-succeed
// logout contract.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	auditservice "github.com/smallbiznis/passage/internal/audit/service"
	"github.com/smallbiznis/passage/internal/config"
	"github.com/smallbiznis/passage/internal/geolocation"
	"github.com/smallbiznis/passage/internal/providers/email"
	"github.com/smallbiznis/passage/internal/providers/sms"
	sessionservice "github.com/smallbiznis/passage/internal/session/service"
	subnetservice "github.com/smallbiznis/passage/internal/subnet/service"
	"github.com/smallbiznis/passage/internal/token"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	verificationdomain "github.com/smallbiznis/passage/internal/verification/domain"
	verificationservice "github.com/smallbiznis/passage/internal/verification/service"
)

var (
	// ErrUnverifiedEmail means the account's primary email has not
	// been confirmed yet.
	ErrUnverifiedEmail = errors.New("email address is not verified")
	// ErrUnverifiedLocation means the login came from a network the
	// user has not approved; an approval link has been sent.
	ErrUnverifiedLocation = errors.New("login from an unapproved location")
)

// LoginChecks declares which anomaly gates a login entry point runs.
// Entry points that already proved possession of a side-channel
// credential (approval link, mini-program session) disable them.
type LoginChecks struct {
	VerifiedEmail bool
	KnownSubnet   bool
}

// AllChecks is the default for credential-based logins.
func AllChecks() LoginChecks {
	return LoginChecks{VerifiedEmail: true, KnownSubnet: true}
}

// NoChecks is for entry points with a proven side channel.
func NoChecks() LoginChecks {
	return LoginChecks{}
}

// LoginAttempt carries the request metadata a session records.
type LoginAttempt struct {
	IPAddress string
	UserAgent string
}

// LoginResult is the login envelope. The refresh token travels in a
// cookie, not the body; the handler uses RefreshToken/RefreshExpiresAt
// to write it.
type LoginResult struct {
	Token                 string    `json:"token"`
	TokenExpiresInSeconds int64     `json:"tokenExpiresInSeconds"`
	RefreshToken          string    `json:"-"`
	RefreshExpiresAt      time.Time `json:"-"`
}

type Deps struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Users    *userservice.Service
	UserRepo userdomain.Repository
	Emails   userdomain.EmailRepository
	Sessions *sessionservice.Service
	Subnets  *subnetservice.Service
	Tokens   *token.Engine
	Codes    *verificationservice.Service
	Mailer   email.Provider
	SMS      sms.Provider
	Geo      geolocation.Resolver
	Audit    *auditservice.Service
	GenID    *snowflake.Node
	Enricher *Enricher
}

type Service struct {
	log      *zap.Logger
	cfg      config.Config
	users    *userservice.Service
	userRepo userdomain.Repository
	emails   userdomain.EmailRepository
	sessions *sessionservice.Service
	subnets  *subnetservice.Service
	tokens   *token.Engine
	codes    *verificationservice.Service
	mailer   email.Provider
	sms      sms.Provider
	geo      geolocation.Resolver
	audit    *auditservice.Service
	genID    *snowflake.Node
	enricher *Enricher
}

func New(d Deps) *Service {
	return &Service{
		log:      d.Log.Named("account.service"),
		cfg:      d.Config,
		users:    d.Users,
		userRepo: d.UserRepo,
		emails:   d.Emails,
		sessions: d.Sessions,
		subnets:  d.Subnets,
		tokens:   d.Tokens,
		codes:    d.Codes,
		mailer:   d.Mailer,
		sms:      d.SMS,
		geo:      d.Geo,
		audit:    d.Audit,
		genID:    d.GenID,
		enricher: d.Enricher,
	}
}

// Login runs the requested anomaly gates, then replaces any existing
// sessions with a fresh one. The location gate sends the approval
// notification before it fails, so the user always has a way back in.
func (s *Service) Login(ctx context.Context, user *userdomain.User, attempt LoginAttempt, checks LoginChecks) (*LoginResult, error) {
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}

	if checks.VerifiedEmail {
		if err := s.checkEmailVerified(ctx, user); err != nil {
			return nil, err
		}
	}
	if checks.KnownSubnet {
		if err := s.checkKnownSubnet(ctx, user, attempt.IPAddress); err != nil {
			return nil, err
		}
	}

	// Single active session: every prior device binding dies here.
	if err := s.sessions.DestroyByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	s.users.TouchLastLogin(ctx, user)

	issued, err := s.sessions.Generate(ctx, sessionservice.GenerateRequest{
		UserID:    user.ID,
		IPAddress: attempt.IPAddress,
		UserAgent: attempt.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &user.ID, auditdomain.EventLogin, nil)

	return &LoginResult{
		Token:                 issued.Session.AccessToken,
		TokenExpiresInSeconds: issued.AccessExpiresIn,
		RefreshToken:          issued.Session.RefreshToken,
		RefreshExpiresAt:      issued.RefreshExpiresAt,
	}, nil
}

func (s *Service) checkEmailVerified(ctx context.Context, user *userdomain.User) error {
	if user.Email == "" {
		// Phone-only and openid-only accounts have nothing to verify.
		return nil
	}
	row, err := s.emails.FindForUser(ctx, user.ID, user.Email)
	if err != nil {
		if errors.Is(err, userdomain.ErrEmailNotFound) {
			return ErrUnverifiedEmail
		}
		return err
	}
	if !row.IsVerified {
		return ErrUnverifiedEmail
	}
	return nil
}

func (s *Service) checkKnownSubnet(ctx context.Context, user *userdomain.User, ip string) error {
	if !user.CheckLocationOnLogin {
		return nil
	}
	approved, err := s.subnets.IsApproved(ctx, user.ID, ip)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}

	s.sendApproveSubnetNotification(ctx, user, ip)
	return ErrUnverifiedLocation
}

// sendApproveSubnetNotification mails a short-lived approval link for
// the new network. Failures are logged, not returned: the login fails
// with ErrUnverifiedLocation either way.
func (s *Service) sendApproveSubnetNotification(ctx context.Context, user *userdomain.User, ip string) {
	if user.Email == "" {
		s.log.Warn("new subnet for account without email, no approval channel",
			zap.String("user_id", user.ID.String()))
		return
	}

	approveToken, err := s.tokens.SignApproveSubnetToken(user.ID.String())
	if err != nil {
		s.log.Error("sign approve subnet token", zap.Error(err))
		return
	}

	locationName := geolocation.Location{}.Name()
	if loc, err := s.geo.Resolve(ctx, ip); err == nil {
		locationName = loc.Name()
	}

	err = s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplateVerifySubnet, map[string]any{
		"name":         user.Name,
		"locationName": locationName,
		"link":         fmt.Sprintf("%s/auth/approve-subnet?token=%s", s.cfg.FrontendURL, approveToken),
	})
	if err != nil {
		s.log.Error("send approve subnet email", zap.Error(err))
	}
}

// RefreshAccessToken rotates the session behind the presented refresh
// token in place and returns the replacement pair.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	issued, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &issued.Session.UserID, auditdomain.EventRefresh, nil)

	return &LoginResult{
		Token:                 issued.Session.AccessToken,
		TokenExpiresInSeconds: issued.AccessExpiresIn,
		RefreshToken:          issued.Session.RefreshToken,
		RefreshExpiresAt:      issued.RefreshExpiresAt,
	}, nil
}

// Logout destroys the session behind either presented token. It never
// fails: reporting "that token does not exist" would leak which tokens
// do.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) {
	var userID *snowflake.ID
	if accessToken != "" {
		if sess, err := s.sessions.FindByAccessToken(ctx, accessToken); err == nil {
			userID = &sess.UserID
		}
		if err := s.sessions.DestroyByAccessToken(ctx, accessToken); err != nil {
			s.log.Warn("destroy session by access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if userID == nil {
			if sess, err := s.sessions.FindByRefreshToken(ctx, refreshToken); err == nil {
				userID = &sess.UserID
			}
		}
		if err := s.sessions.DestroyByRefreshToken(ctx, refreshToken); err != nil {
			s.log.Warn("destroy session by refresh token", zap.Error(err))
		}
	}
	s.audit.Record(ctx, userID, auditdomain.EventLogout, nil)
}

// VerifyEmail consumes an APPROVE_EMAIL_TOKEN and marks the email row
// it names as verified.
func (s *Service) VerifyEmail(ctx context.Context, tokenString string) error {
	emailIDRaw, err := s.tokens.VerifyApproveEmailToken(tokenString)
	if err != nil {
		return err
	}
	emailID, err := snowflake.ParseString(emailIDRaw)
	if err != nil {
		return token.ErrInvalidToken
	}
	if _, err := s.emails.FindByID(ctx, emailID); err != nil {
		return err
	}
	return s.emails.MarkVerified(ctx, emailID)
}

// LoginByApproveSubnet consumes an APPROVE_SUBNET_TOKEN: it records
// the presenting network as approved and completes the login that the
// location gate interrupted. The gates are skipped; the emailed link
// is the proof of ownership.
func (s *Service) LoginByApproveSubnet(ctx context.Context, tokenString string, attempt LoginAttempt) (*LoginResult, error) {
	info, err := s.tokens.VerifyApproveSubnetToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := snowflake.ParseString(info.UserID)
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.subnets.ApproveNewSubnet(ctx, user.ID, attempt.IPAddress); err != nil {
		return nil, err
	}
	return s.Login(ctx, user, attempt, NoChecks())
}

// SendVerificationCode mints (or re-serves) a login code for the
// account identifier and delivers it over the matching channel. The
// countdown tells the client when a resend becomes possible.
func (s *Service) SendVerificationCode(ctx context.Context, accountIdentifier string) (int, error) {
	user, err := s.users.FindByAccount(ctx, accountIdentifier)
	if err != nil {
		return 0, err
	}

	switch userservice.ClassifyAccount(accountIdentifier) {
	case userservice.AccountEmail:
		generated, err := s.codes.GenerateForEmail(ctx, accountIdentifier, verificationdomain.UseLoginByEmail)
		if err != nil {
			return 0, err
		}
		err = s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplateLoginCode, map[string]any{
			"name":    user.Name,
			"code":    generated.Code,
			"minutes": s.codes.TimeoutMinutes(),
		})
		if err != nil {
			return 0, err
		}
		return generated.SecondsOfCountdown, nil
	case userservice.AccountPhone:
		generated, err := s.codes.GenerateForPhone(ctx, accountIdentifier, verificationdomain.UseLoginByPhone)
		if err != nil {
			return 0, err
		}
		message := fmt.Sprintf("Your sign-in code is %s.", generated.Code)
		if err := s.sms.Send(ctx, *user.Phone, message); err != nil {
			return 0, err
		}
		return generated.SecondsOfCountdown, nil
	default:
		return 0, userdomain.ErrMissingIdentifier
	}
}
