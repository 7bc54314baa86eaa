// Package guard authenticates requests. Every route is bound to one
// named strategy; the dispatcher runs it and either attaches a
// principal to the request or aborts before any handler logic.
package guard

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apikeyservice "github.com/smallbiznis/passage/internal/apikey/service"
	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	auditservice "github.com/smallbiznis/passage/internal/audit/service"
	"github.com/smallbiznis/passage/internal/authorization"
	"github.com/smallbiznis/passage/internal/google"
	"github.com/smallbiznis/passage/internal/ratelimit"
	"github.com/smallbiznis/passage/internal/session"
	sessionservice "github.com/smallbiznis/passage/internal/session/service"
	"github.com/smallbiznis/passage/internal/token"
	userdomain "github.com/smallbiznis/passage/internal/user/domain"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	verificationdomain "github.com/smallbiznis/passage/internal/verification/domain"
	verificationservice "github.com/smallbiznis/passage/internal/verification/service"
	"github.com/smallbiznis/passage/internal/wechat"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUnknownStrategy    = errors.New("unknown authentication strategy")
)

// API key credential headers.
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderAPISecret = "X-Api-Secret"
)

type authenticator func(c *gin.Context) (*Principal, error)

type Guard struct {
	log      *zap.Logger
	users    *userservice.Service
	codes    *verificationservice.Service
	apikeys  *apikeyservice.Service
	sessions *sessionservice.Service
	tokens   *token.Engine
	google   *google.Client
	wechat   *wechat.Client
	cookies  *session.CookieManager
	limiter  *ratelimit.LoginLimiter
	authz    *authorization.Service
	audit    *auditservice.Service

	registry map[Strategy]authenticator
}

func New(
	log *zap.Logger,
	users *userservice.Service,
	codes *verificationservice.Service,
	apikeys *apikeyservice.Service,
	sessions *sessionservice.Service,
	tokens *token.Engine,
	googleClient *google.Client,
	wechatClient *wechat.Client,
	cookies *session.CookieManager,
	limiter *ratelimit.LoginLimiter,
	authz *authorization.Service,
	audit *auditservice.Service,
) *Guard {
	g := &Guard{
		log:      log.Named("guard"),
		users:    users,
		codes:    codes,
		apikeys:  apikeys,
		sessions: sessions,
		tokens:   tokens,
		google:   googleClient,
		wechat:   wechatClient,
		cookies:  cookies,
		limiter:  limiter,
		authz:    authz,
		audit:    audit,
	}
	g.registry = map[Strategy]authenticator{
		StrategyNone:               g.authenticateNone,
		StrategyPassword:           g.authenticatePassword,
		StrategyVerificationCode:   g.authenticateVerificationCode,
		StrategyProfile:            g.authenticateProfile,
		StrategyUUID:               g.authenticateUUID,
		StrategyAPIKey:             g.authenticateAPIKey,
		StrategyRefreshToken:       g.authenticateRefreshToken,
		StrategyGoogle:             g.authenticateGoogle,
		StrategyWechat:             g.authenticateWechat,
		StrategyWechatRefreshToken: g.authenticateWechatRefreshToken,
		StrategyAccessToken:        g.authenticateAccessToken,
	}
	return g
}

// Middleware runs the named strategy and aborts the request when it
// fails. A successful run leaves a Principal on the context.
func (g *Guard) Middleware(strategy Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := g.registry[strategy]
		if !ok {
			abort(c, ErrUnknownStrategy)
			return
		}
		principal, err := auth(c)
		if err != nil {
			abort(c, err)
			return
		}
		if principal != nil {
			principal.Strategy = strategy
			setPrincipal(c, principal)
		}
		c.Next()
	}
}

// RequirePermission gates a route on a stored (resource, action) grant
// for the already-authenticated user. Place after Middleware.
func (g *Guard) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		allowed, err := g.authz.Can(c.Request.Context(), user, resource, action)
		if err != nil {
			abort(c, err)
			return
		}
		if !allowed {
			abort(c, authorization.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func (g *Guard) authenticateNone(*gin.Context) (*Principal, error) {
	return nil, nil
}

func (g *Guard) authenticatePassword(c *gin.Context) (*Principal, error) {
	var body struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Account == "" || body.Password == "" {
		return nil, ErrMissingCredentials
	}

	ctx := c.Request.Context()
	if err := g.limiter.AllowIP(ctx, c.ClientIP()); err != nil {
		return nil, err
	}
	if err := g.limiter.AllowAccount(ctx, body.Account); err != nil {
		return nil, err
	}

	user, err := g.users.FindByAccount(ctx, body.Account)
	if err != nil {
		g.recordFailure(c, nil, "password")
		return nil, err
	}
	if err := g.users.VerifyPassword(user, body.Password); err != nil {
		g.recordFailure(c, user, "password")
		return nil, err
	}
	return &Principal{User: user}, nil
}

func (g *Guard) authenticateVerificationCode(c *gin.Context) (*Principal, error) {
	var body struct {
		Account          string `json:"account"`
		VerificationCode string `json:"verificationCode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Account == "" || body.VerificationCode == "" {
		return nil, ErrMissingCredentials
	}

	ctx := c.Request.Context()
	user, err := g.users.FindByAccount(ctx, body.Account)
	if err != nil {
		g.recordFailure(c, nil, "verification-code")
		return nil, err
	}

	switch userservice.ClassifyAccount(body.Account) {
	case userservice.AccountEmail:
		err = g.codes.ValidateForEmail(ctx, body.Account, verificationdomain.UseLoginByEmail, body.VerificationCode)
	case userservice.AccountPhone:
		err = g.codes.ValidateForPhone(ctx, body.Account, verificationdomain.UseLoginByPhone, body.VerificationCode)
	default:
		err = verificationdomain.ErrInvalidCode
	}
	if err != nil {
		g.recordFailure(c, user, "verification-code")
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user}, nil
}

func (g *Guard) authenticateProfile(c *gin.Context) (*Principal, error) {
	var body struct {
		FirstName   string `json:"firstName"`
		MiddleName  string `json:"middleName"`
		LastName    string `json:"lastName"`
		DateOfBirth string `json:"dateOfBirth"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, ErrMissingCredentials
	}

	match, err := userdomain.ParseProfileMatch(body.FirstName, body.MiddleName, body.LastName, body.DateOfBirth)
	if err != nil {
		return nil, err
	}
	user, err := g.users.FindByProfile(c.Request.Context(), match)
	if err != nil {
		g.recordFailure(c, nil, "profile")
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user}, nil
}

func (g *Guard) authenticateUUID(c *gin.Context) (*Principal, error) {
	var body struct {
		UUID string `json:"uuid"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UUID == "" {
		return nil, ErrMissingCredentials
	}

	user, err := g.users.FindByUUID(c.Request.Context(), body.UUID)
	if err != nil {
		g.recordFailure(c, nil, "uuid")
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user}, nil
}

func (g *Guard) authenticateAPIKey(c *gin.Context) (*Principal, error) {
	key := c.GetHeader(HeaderAPIKey)
	secret := c.GetHeader(HeaderAPISecret)
	if key == "" || secret == "" {
		return nil, ErrMissingCredentials
	}

	ctx := c.Request.Context()
	if err := g.limiter.AllowIP(ctx, c.ClientIP()); err != nil {
		return nil, err
	}

	userID, err := g.apikeys.Authenticate(ctx, key, secret)
	if err != nil {
		g.recordFailure(c, nil, "api-key")
		return nil, err
	}
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user}, nil
}

func (g *Guard) authenticateRefreshToken(c *gin.Context) (*Principal, error) {
	raw, ok := g.cookies.Read(c)
	if !ok {
		return nil, ErrMissingCredentials
	}
	return g.resolveRefreshToken(c, raw)
}

// authenticateWechatRefreshToken mirrors the cookie strategy for
// clients that cannot hold cookies; the token rides in the
// Authorization header or a query parameter instead.
func (g *Guard) authenticateWechatRefreshToken(c *gin.Context) (*Principal, error) {
	raw, ok := token.FromHTTPRequest(c.Request)
	if !ok {
		raw = c.Query("refreshToken")
	}
	if raw == "" {
		return nil, ErrMissingCredentials
	}
	return g.resolveRefreshToken(c, raw)
}

// resolveRefreshToken verifies the presented token and loads its
// session. A token that fails verification takes its session down with
// it, so a replayed or expired refresh token cannot be retried.
func (g *Guard) resolveRefreshToken(c *gin.Context, raw string) (*Principal, error) {
	ctx := c.Request.Context()
	info, err := g.tokens.VerifyUserRefreshToken(raw)
	if err != nil {
		if destroyErr := g.sessions.DestroyByRefreshToken(ctx, raw); destroyErr != nil {
			g.log.Warn("destroy session for bad refresh token", zap.Error(destroyErr))
		}
		return nil, token.ErrInvalidToken
	}

	sess, err := g.sessions.FindByRefreshToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	userID, err := snowflake.ParseString(info.UserID)
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user, Session: sess, RefreshToken: raw}, nil
}

func (g *Guard) authenticateGoogle(c *gin.Context) (*Principal, error) {
	var body struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirectUri"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Code == "" {
		return nil, ErrMissingCredentials
	}

	profile, err := g.google.ExchangeCode(c.Request.Context(), body.Code, body.RedirectURI)
	if err != nil {
		return nil, err
	}
	return &Principal{Google: profile}, nil
}

// authenticateWechat consumes the request body, so it binds every
// field the downstream handlers need; a second bind would read an
// already-drained body.
func (g *Guard) authenticateWechat(c *gin.Context) (*Principal, error) {
	var body struct {
		Code   string `json:"code"`
		OpenID string `json:"openId"`
		Phone  string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, ErrMissingCredentials
	}

	openID := body.OpenID
	if body.Code != "" {
		sess, err := g.wechat.CodeToSession(c.Request.Context(), body.Code)
		if err != nil {
			return nil, err
		}
		openID = sess.OpenID
	}
	if openID == "" {
		return nil, wechat.ErrMissingCode
	}
	return &Principal{WechatOpenID: openID, WechatPhone: strings.TrimSpace(body.Phone)}, nil
}

func (g *Guard) authenticateAccessToken(c *gin.Context) (*Principal, error) {
	raw, ok := token.FromHTTPRequest(c.Request)
	if !ok {
		return nil, ErrMissingCredentials
	}

	info, err := g.tokens.VerifyUserAccessToken(raw)
	if err != nil {
		return nil, err
	}
	// The session row is the liveness truth; a logged-out token is
	// cryptographically valid but no longer resolves.
	ctx := c.Request.Context()
	sess, err := g.sessions.FindByAccessToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	userID, err := snowflake.ParseString(info.UserID)
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, userdomain.ErrInactiveUser
	}
	return &Principal{User: user, Session: sess}, nil
}

func (g *Guard) recordFailure(c *gin.Context, user *userdomain.User, strategy string) {
	var userID *snowflake.ID
	if user != nil {
		userID = &user.ID
	}
	g.audit.Record(c.Request.Context(), userID, auditdomain.EventLoginFailed, map[string]any{
		"strategy": strategy,
	})
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
