package account

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	auditrepository "github.com/smallbiznis/passage/internal/audit/repository"
	auditservice "github.com/smallbiznis/passage/internal/audit/service"
	"github.com/smallbiznis/passage/internal/config"
	"github.com/smallbiznis/passage/internal/geolocation"
	"github.com/smallbiznis/passage/internal/providers/email"
	"github.com/smallbiznis/passage/internal/providers/sms"
	sessiondomain "github.com/smallbiznis/passage/internal/session/domain"
	sessionrepository "github.com/smallbiznis/passage/internal/session/repository"
	sessionservice "github.com/smallbiznis/passage/internal/session/service"
	subnetdomain "github.com/smallbiznis/passage/internal/subnet/domain"
	subnetrepository "github.com/smallbiznis/passage/internal/subnet/repository"
	subnetservice "github.com/smallbiznis/passage/internal/subnet/service"
	"github.com/smallbiznis/passage/internal/token"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userrepository "github.com/smallbiznis/passage/internal/user/repository"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	verificationdomain "github.com/smallbiznis/passage/internal/verification/domain"
	verificationrepository "github.com/smallbiznis/passage/internal/verification/repository"
	verificationservice "github.com/smallbiznis/passage/internal/verification/service"
	"github.com/smallbiznis/passage/pkg/db"
)

type staticResolver struct{}

func (staticResolver) Resolve(context.Context, string) (geolocation.Location, error) {
	return geolocation.Location{City: "Lisbon", CountryCode: "PT"}, nil
}

type sentMail struct {
	To       []string
	Template string
	Data     map[string]any
}

type captureMailer struct {
	sent []sentMail
}

func (m *captureMailer) Send(context.Context, []string, string, string) error { return nil }

func (m *captureMailer) SendTemplate(_ context.Context, to []string, templateName string, data map[string]any) error {
	m.sent = append(m.sent, sentMail{To: to, Template: templateName, Data: data})
	return nil
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	mailer *captureMailer
	node   *snowflake.Node
	tokens *token.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	models := []any{
		&userdomain.User{}, &userdomain.Email{}, &sessiondomain.Session{},
		&subnetdomain.ApprovedSubnet{}, &verificationdomain.VerificationCode{},
		&auditdomain.AuditLog{},
	}
	if err := dbConn.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	cfg := config.Config{
		Environment:     "development",
		FrontendURL:     "https://app.example.com",
		TokenSecret:     "test-secret",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	}
	engine, err := token.NewEngine(cfg)
	if err != nil {
		t.Fatalf("failed to create token engine: %v", err)
	}
	security := config.NewStaticSecurityConfigHolder(config.DefaultSecurityConfig())

	log := zap.NewNop()
	userRepo, emailRepo := userrepository.New(dbConn)
	mailer := &captureMailer{}

	svc := New(Deps{
		Log:      log,
		Config:   cfg,
		Users:    userservice.New(log, userRepo),
		UserRepo: userRepo,
		Emails:   emailRepo,
		Sessions: sessionservice.New(log, sessionrepository.New(dbConn), engine, staticResolver{}, node),
		Subnets:  subnetservice.New(log, subnetrepository.New(dbConn), staticResolver{}, node),
		Tokens:   engine,
		Codes:    verificationservice.New(log, verificationrepository.New(dbConn), security, node),
		Mailer:   mailer,
		SMS:      sms.NewLog(log),
		Geo:      staticResolver{},
		Audit:    auditservice.New(log, auditrepository.New(dbConn), node),
		GenID:    node,
		Enricher: NewEnricher(log),
	})

	return &fixture{svc: svc, db: dbConn, mailer: mailer, node: node, tokens: engine}
}

func (f *fixture) signupUser(t *testing.T, emailAddr string) *userdomain.User {
	t.Helper()
	user, err := f.svc.Signup(context.Background(), SignupRequest{
		Email:     emailAddr,
		Password:  "correct-horse1",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})
	if err != nil {
		t.Fatalf("failed to sign up: %v", err)
	}
	return user
}

func linkToken(t *testing.T, mail sentMail) string {
	t.Helper()
	link, ok := mail.Data["link"].(string)
	if !ok {
		t.Fatalf("mail %q carries no link", mail.Template)
	}
	_, tok, found := strings.Cut(link, "token=")
	if !found {
		t.Fatalf("link %q carries no token", link)
	}
	return tok
}

func TestSignupThenLoginFromSameNetwork(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	if user.UUID == "" {
		t.Fatal("signup left uuid empty")
	}
	if user.AvatarURL == nil {
		t.Fatal("signup left avatar empty")
	}

	// Outside production the email is auto-verified and the signup
	// network is pre-approved, so a login from it passes both gates.
	result, err := f.svc.Login(context.Background(), user,
		LoginAttempt{IPAddress: "203.0.113.7", UserAgent: "test-agent"}, AllChecks())
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	if result.Token == "" || result.TokenExpiresInSeconds <= 0 {
		t.Fatalf("bad login envelope: %+v", result)
	}
	if result.RefreshToken == "" || result.RefreshExpiresAt.IsZero() {
		t.Fatalf("missing refresh pair: %+v", result)
	}
}

func TestSignupRejectsDuplicateAndWeakInput(t *testing.T) {
	f := newFixture(t)
	f.signupUser(t, "dana@example.com")

	_, err := f.svc.Signup(context.Background(), SignupRequest{
		Email: "dana@example.com", Password: "correct-horse1",
	})
	if err != userdomain.ErrConflictingAccount {
		t.Fatalf("duplicate err = %v, want ErrConflictingAccount", err)
	}

	_, err = f.svc.Signup(context.Background(), SignupRequest{
		Email: "other@example.com", Password: "short",
	})
	if err != userdomain.ErrWeakPassword {
		t.Fatalf("weak password err = %v, want ErrWeakPassword", err)
	}

	_, err = f.svc.Signup(context.Background(), SignupRequest{Password: "correct-horse1"})
	if err != userdomain.ErrMissingIdentifier {
		t.Fatalf("no identifier err = %v, want ErrMissingIdentifier", err)
	}
}

func TestLoginUnverifiedEmail(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	if err := f.db.Model(&userdomain.Email{}).Where("user_id = ?", user.ID).
		Update("is_verified", false).Error; err != nil {
		t.Fatalf("failed to unverify email: %v", err)
	}

	_, err := f.svc.Login(context.Background(), user,
		LoginAttempt{IPAddress: "203.0.113.7"}, AllChecks())
	if err != ErrUnverifiedEmail {
		t.Fatalf("err = %v, want ErrUnverifiedEmail", err)
	}
}

func TestLoginNewLocationApproveFlow(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	// A different /24 than the signup network.
	attempt := LoginAttempt{IPAddress: "198.51.100.23", UserAgent: "test-agent"}

	_, err := f.svc.Login(context.Background(), user, attempt, AllChecks())
	if err != ErrUnverifiedLocation {
		t.Fatalf("err = %v, want ErrUnverifiedLocation", err)
	}

	// The notification went out before the failure.
	var approveMail *sentMail
	for i := range f.mailer.sent {
		if f.mailer.sent[i].Template == email.TemplateVerifySubnet {
			approveMail = &f.mailer.sent[i]
		}
	}
	if approveMail == nil {
		t.Fatal("no approve-subnet mail sent")
	}
	if name := approveMail.Data["locationName"]; name != "Lisbon, PT" {
		t.Fatalf("locationName = %v", name)
	}

	// Submitting the emailed token approves the network and completes
	// the interrupted login.
	result, err := f.svc.LoginByApproveSubnet(context.Background(), linkToken(t, *approveMail), attempt)
	if err != nil {
		t.Fatalf("failed to log in by approve subnet: %v", err)
	}
	if result.Token == "" {
		t.Fatal("empty token after subnet approval")
	}

	// The network is now remembered.
	if _, err := f.svc.Login(context.Background(), user, attempt, AllChecks()); err != nil {
		t.Fatalf("second login from approved network failed: %v", err)
	}
}

func TestLoginDisabledLocationCheck(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	if err := f.db.Model(&userdomain.User{}).Where("id = ?", user.ID).
		Update("check_location_on_login", false).Error; err != nil {
		t.Fatalf("failed to disable location check: %v", err)
	}
	user.CheckLocationOnLogin = false

	if _, err := f.svc.Login(context.Background(), user,
		LoginAttempt{IPAddress: "198.51.100.23"}, AllChecks()); err != nil {
		t.Fatalf("login with disabled location check failed: %v", err)
	}
}

func TestLoginReplacesExistingSessions(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")
	attempt := LoginAttempt{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

	first, err := f.svc.Login(context.Background(), user, attempt, AllChecks())
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := f.svc.Login(context.Background(), user, attempt, AllChecks())
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("logins produced the same token")
	}

	var count int64
	if err := f.db.Model(&sessiondomain.Session{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("sessions = %d, want 1", count)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	result, err := f.svc.Login(context.Background(), user,
		LoginAttempt{IPAddress: "203.0.113.7"}, AllChecks())
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	rotated, err := f.svc.RefreshAccessToken(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}
	if rotated.Token == result.Token {
		t.Fatal("refresh did not rotate the access token")
	}
	if !rotated.RefreshExpiresAt.Equal(result.RefreshExpiresAt) {
		t.Fatalf("refresh expiry moved: %v -> %v", result.RefreshExpiresAt, rotated.RefreshExpiresAt)
	}
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	result, err := f.svc.Login(context.Background(), user,
		LoginAttempt{IPAddress: "203.0.113.7"}, AllChecks())
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}

	f.svc.Logout(context.Background(), result.Token, "")
	// Unknown and repeated tokens are fine too.
	f.svc.Logout(context.Background(), result.Token, result.RefreshToken)
	f.svc.Logout(context.Background(), "", "not-a-token")

	var count int64
	if err := f.db.Model(&sessiondomain.Session{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count sessions: %v", err)
	}
	if count != 0 {
		t.Fatalf("sessions = %d, want 0", count)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	user := f.signupUser(t, "dana@example.com")

	var row userdomain.Email
	if err := f.db.Where("user_id = ?", user.ID).First(&row).Error; err != nil {
		t.Fatalf("failed to load email row: %v", err)
	}
	if err := f.db.Model(&row).Update("is_verified", false).Error; err != nil {
		t.Fatalf("failed to unverify: %v", err)
	}

	verifyToken, err := f.tokens.SignApproveEmailToken(row.ID.String())
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if err := f.svc.VerifyEmail(context.Background(), verifyToken); err != nil {
		t.Fatalf("failed to verify email: %v", err)
	}

	if err := f.db.First(&row, row.ID).Error; err != nil {
		t.Fatalf("failed to reload email row: %v", err)
	}
	if !row.IsVerified {
		t.Fatal("email still unverified")
	}

	if err := f.svc.VerifyEmail(context.Background(), "garbage"); err != token.ErrInvalidToken {
		t.Fatalf("garbage token err = %v, want ErrInvalidToken", err)
	}
}

func TestWechatSignupConvergesOnLogin(t *testing.T) {
	f := newFixture(t)
	attempt := LoginAttempt{IPAddress: "198.51.100.23", UserAgent: "miniprogram"}

	if _, err := f.svc.LoginByWechat(context.Background(), "openid-1", attempt); err != ErrWechatAccountNotFound {
		t.Fatalf("unknown openid err = %v, want ErrWechatAccountNotFound", err)
	}

	// Signup issues a session straight away: the mini-program session
	// is the credential, so neither gate applies.
	first, err := f.svc.SignupByWechat(context.Background(), "openid-1", "+15551234567", attempt)
	if err != nil {
		t.Fatalf("failed to sign up by wechat: %v", err)
	}
	if first.Token == "" {
		t.Fatal("empty token from wechat signup")
	}

	// A retried signup reuses the binding instead of failing.
	if _, err := f.svc.SignupByWechat(context.Background(), "openid-1", "", attempt); err != nil {
		t.Fatalf("retried wechat signup failed: %v", err)
	}
	var count int64
	if err := f.db.Model(&userdomain.User{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("users = %d, want 1", count)
	}

	if _, err := f.svc.LoginByWechat(context.Background(), "openid-1", attempt); err != nil {
		t.Fatalf("wechat login failed: %v", err)
	}
}

func TestSendVerificationCodeByEmail(t *testing.T) {
	f := newFixture(t)
	f.signupUser(t, "dana@example.com")

	countdown, err := f.svc.SendVerificationCode(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("failed to send code: %v", err)
	}
	if countdown <= 0 {
		t.Fatalf("countdown = %d", countdown)
	}

	var mail *sentMail
	for i := range f.mailer.sent {
		if f.mailer.sent[i].Template == email.TemplateLoginCode {
			mail = &f.mailer.sent[i]
		}
	}
	if mail == nil {
		t.Fatal("no login-code mail sent")
	}
	code, ok := mail.Data["code"].(string)
	if !ok || len(code) != 6 {
		t.Fatalf("code = %v", mail.Data["code"])
	}

	if _, err := f.svc.SendVerificationCode(context.Background(), "nobody@example.com"); err != userdomain.ErrUserNotFound {
		t.Fatalf("unknown account err = %v, want ErrUserNotFound", err)
	}
}
