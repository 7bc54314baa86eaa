package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/account"
	"github.com/smallbiznis/passage/internal/apikey"
	apikeyservice "github.com/smallbiznis/passage/internal/apikey/service"
	"github.com/smallbiznis/passage/internal/audit"
	auditservice "github.com/smallbiznis/passage/internal/audit/service"
	"github.com/smallbiznis/passage/internal/authorization"
	"github.com/smallbiznis/passage/internal/config"
	"github.com/smallbiznis/passage/internal/geolocation"
	"github.com/smallbiznis/passage/internal/google"
	"github.com/smallbiznis/passage/internal/guard"
	"github.com/smallbiznis/passage/internal/observability"
	obslogger "github.com/smallbiznis/passage/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/passage/internal/observability/metrics"
	obstracing "github.com/smallbiznis/passage/internal/observability/tracing"
	"github.com/smallbiznis/passage/internal/providers"
	"github.com/smallbiznis/passage/internal/ratelimit"
	"github.com/smallbiznis/passage/internal/session"
	sessionservice "github.com/smallbiznis/passage/internal/session/service"
	"github.com/smallbiznis/passage/internal/subnet"
	subnetservice "github.com/smallbiznis/passage/internal/subnet/service"
	"github.com/smallbiznis/passage/internal/token"
	"github.com/smallbiznis/passage/internal/user"
	userservice "github.com/smallbiznis/passage/internal/user/service"
	"github.com/smallbiznis/passage/internal/verification"
	"github.com/smallbiznis/passage/internal/wechat"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	token.Module,
	authorization.Module,
	audit.Module,
	user.Module,
	session.Module,
	subnet.Module,
	verification.Module,
	apikey.Module,
	providers.Module,
	geolocation.Module,
	google.Module,
	wechat.Module,
	ratelimit.Module,
	guard.Module,
	account.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	return r
}

func registerGin(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	cfg      config.Config
	guard    *guard.Guard
	accounts *account.Service
	users    *userservice.Service
	sessions *sessionservice.Service
	subnets  *subnetservice.Service
	apikeys  *apikeyservice.Service
	audit    *auditservice.Service
	cookies  *session.CookieManager
	limiter  *ratelimit.LoginLimiter
	metrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Log      *zap.Logger
	Cfg      config.Config
	Guard    *guard.Guard
	Accounts *account.Service
	Users    *userservice.Service
	Sessions *sessionservice.Service
	Subnets  *subnetservice.Service
	APIKeys  *apikeyservice.Service
	Audit    *auditservice.Service
	Cookies  *session.CookieManager
	Limiter  *ratelimit.LoginLimiter
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Gin,
		log:      p.Log.Named("server"),
		cfg:      p.Cfg,
		guard:    p.Guard,
		accounts: p.Accounts,
		users:    p.Users,
		sessions: p.Sessions,
		subnets:  p.Subnets,
		apikeys:  p.APIKeys,
		audit:    p.Audit,
		cookies:  p.Cookies,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}

	s.registerAuthRoutes()
	s.registerAccountRoutes()
	s.registerWechatRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/send-verification-code", s.SendVerificationCode)

	auth.POST("/login-by-password", s.guard.Middleware(guard.StrategyPassword), s.loginHandler(guard.StrategyPassword))
	auth.POST("/login-by-verification-code", s.guard.Middleware(guard.StrategyVerificationCode), s.loginHandler(guard.StrategyVerificationCode))
	auth.POST("/login-by-profile", s.guard.Middleware(guard.StrategyProfile), s.loginHandler(guard.StrategyProfile))
	auth.POST("/login-by-uuid", s.guard.Middleware(guard.StrategyUUID), s.loginHandler(guard.StrategyUUID))
	auth.POST("/login-by-apikey", s.guard.Middleware(guard.StrategyAPIKey), s.loginHandler(guard.StrategyAPIKey))
	auth.POST("/login-by-google", s.guard.Middleware(guard.StrategyGoogle), s.LoginByGoogle)

	auth.GET("/refresh-access-token", s.guard.Middleware(guard.StrategyRefreshToken), s.RefreshAccessToken)
	auth.POST("/logout", s.Logout)

	auth.POST("/login-by-approve-subnet", s.LoginByApproveSubnet)
	auth.POST("/signup-email-verify", s.VerifyEmail)

	auth.GET("/me", s.guard.Middleware(guard.StrategyAccessToken), s.Me)
	auth.GET("/sessions", s.guard.Middleware(guard.StrategyAccessToken), s.ListSessions)
}

func (s *Server) registerAccountRoutes() {
	subnets := s.engine.Group("/approved-subnets", s.guard.Middleware(guard.StrategyAccessToken))

	subnets.GET("", s.ListApprovedSubnets)
	subnets.POST("/approve", s.ApproveCurrentSubnet)
	subnets.DELETE("/:id", s.DeleteApprovedSubnet)
}

func (s *Server) registerWechatRoutes() {
	wx := s.engine.Group("/wechat/auth")

	wx.POST("/login", s.guard.Middleware(guard.StrategyWechat), s.LoginByWechat)
	wx.POST("/signup", s.guard.Middleware(guard.StrategyWechat), s.SignupByWechat)
	wx.GET("/refresh", s.guard.Middleware(guard.StrategyWechatRefreshToken), s.RefreshWechatToken)
}

func (s *Server) registerAdminRoutes() {
	s.engine.GET("/users",
		s.guard.Middleware(guard.StrategyAccessToken),
		s.guard.RequirePermission(authorization.ResourceUser, authorization.ActionList),
		s.ListUsers,
	)
	s.engine.GET("/audit-logs",
		s.guard.Middleware(guard.StrategyAccessToken),
		s.guard.RequirePermission(authorization.ResourceAuditLog, authorization.ActionList),
		s.ListAuditLogs,
	)
}
