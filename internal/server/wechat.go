package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/passage/internal/account"
	"github.com/smallbiznis/passage/internal/guard"
)

// wechatTokenResponse carries the refresh token in the body. The
// mini-program runtime has no cookie jar, so the cookie contract does
// not apply here.
type wechatTokenResponse struct {
	Token                 string `json:"token"`
	TokenExpiresInSeconds int64  `json:"tokenExpiresInSeconds"`
	RefreshToken          string `json:"refreshToken"`
}

func (s *Server) respondWechatLogin(c *gin.Context, result *account.LoginResult) {
	c.JSON(http.StatusOK, wechatTokenResponse{
		Token:                 result.Token,
		TokenExpiresInSeconds: result.TokenExpiresInSeconds,
		RefreshToken:          result.RefreshToken,
	})
}

func (s *Server) LoginByWechat(c *gin.Context) {
	p, ok := guard.PrincipalFrom(c)
	if !ok || p.WechatOpenID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.accounts.LoginByWechat(c.Request.Context(), p.WechatOpenID, attemptFrom(c))
	s.recordLogin(string(guard.StrategyWechat), err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondWechatLogin(c, result)
}

func (s *Server) SignupByWechat(c *gin.Context) {
	p, ok := guard.PrincipalFrom(c)
	if !ok || p.WechatOpenID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.accounts.SignupByWechat(c.Request.Context(), p.WechatOpenID, p.WechatPhone, attemptFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
	s.respondWechatLogin(c, result)
}

func (s *Server) RefreshWechatToken(c *gin.Context) {
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
		AbortWithError(c, err)
		return
	}
	s.respondWechatLogin(c, result)
}
