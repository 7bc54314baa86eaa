package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/account"
	"github.com/smallbiznis/passage/internal/guard"
	"github.com/smallbiznis/passage/internal/token"
)

func attemptFrom(c *gin.Context) account.LoginAttempt {
	return account.LoginAttempt{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondLogin writes the refresh cookie and the access-token body.
func (s *Server) respondLogin(c *gin.Context, result *account.LoginResult) {
	s.cookies.Write(c, result.RefreshToken, result.RefreshExpiresAt)
	c.JSON(http.StatusOK, result)
}

func (s *Server) recordLogin(strategy string, err error) {
	if s.metrics != nil {
		s.metrics.RecordLogin(strategy, err)
	}
}

func (s *Server) Signup(c *gin.Context) {
	var req account.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	user, err := s.accounts.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSignup()
	}

	c.JSON(http.StatusCreated, newUserView(user))
}

// loginHandler finishes a credential login once the strategy resolved
// the user. The verification-code strategy skips the email gate: the
// code itself proved inbox or phone possession.
func (s *Server) loginHandler(strategy guard.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := guard.PrincipalFrom(c)
		if !ok || p.User == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		checks := account.AllChecks()
		if strategy == guard.StrategyVerificationCode {
			checks.VerifiedEmail = false
		}

		result, err := s.accounts.Login(c.Request.Context(), p.User, attemptFrom(c), checks)
		s.recordLogin(string(strategy), err)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.respondLogin(c, result)
	}
}

func (s *Server) LoginByGoogle(c *gin.Context) {
	p, ok := guard.PrincipalFrom(c)
	if !ok || p.Google == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.accounts.LoginByGoogle(c.Request.Context(), p.Google, attemptFrom(c))
	s.recordLogin(string(guard.StrategyGoogle), err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondLogin(c, result)
}

func (s *Server) RefreshAccessToken(c *gin.Context) {
	p, ok := guard.PrincipalFrom(c)
	if !ok || p.RefreshToken == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.accounts.RefreshAccessToken(c.Request.Context(), p.RefreshToken)
	if s.metrics != nil {
		s.metrics.RecordRefresh(err)
	}
	if err != nil {
		s.cookies.Clear(c)
		AbortWithError(c, err)
		return
	}
	s.respondLogin(c, result)
}

// Logout destroys whatever credentials the request still carries and
// clears the cookie. It cannot fail; logging out twice is fine.
func (s *Server) Logout(c *gin.Context) {
	accessToken, _ := token.FromHTTPRequest(c.Request)
	refreshToken, _ := s.cookies.Read(c)

	s.accounts.Logout(c.Request.Context(), accessToken, refreshToken)
	s.cookies.Clear(c)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (s *Server) LoginByApproveSubnet(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.accounts.LoginByApproveSubnet(c.Request.Context(), req.Token, attemptFrom(c))
	s.recordLogin("approve-subnet", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondLogin(c, result)
}

func (s *Server) VerifyEmail(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.accounts.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type sendCodeRequest struct {
	Account string `json:"account" binding:"required"`
}

func (s *Server) SendVerificationCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.limiter.AllowIP(c.Request.Context(), c.ClientIP()); err != nil {
		if s.metrics != nil {
			s.metrics.RecordRateLimitHit("send_code_ip")
		}
		AbortWithError(c, err)
		return
	}

	countdown, err := s.accounts.SendVerificationCode(c.Request.Context(), req.Account)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"secondsOfCountdown": countdown})
}

func (s *Server) Me(c *gin.Context) {
	user := guard.CurrentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, newUserView(user))
}

func (s *Server) ListSessions(c *gin.Context) {
	user := guard.CurrentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	sessions, err := s.sessions.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, newSessionView(sess))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}
