// Package wechat exchanges mini-program login codes for openids via
// the jscode2session endpoint.
package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/zap"
)

const sessionEndpoint = "https://api.weixin.qq.com/sns/jscode2session"

var (
	ErrMissingCode   = errors.New("wechat code is required")
	ErrNotConfigured = errors.New("wechat app credentials not configured")
	ErrProvider      = errors.New("wechat provider error")
)

// Session is the provider's answer for a login code.
type Session struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

type Client struct {
	log      *zap.Logger
	appID    string
	secret   string
	endpoint string
	http     *http.Client
}

func NewClient(log *zap.Logger, cfg config.Config) *Client {
	return &Client{
		log:      log.Named("wechat"),
		appID:    cfg.WechatAppID,
		secret:   cfg.WechatAppSecret,
		endpoint: sessionEndpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// CodeToSession resolves a mini-program login code to an openid.
func (c *Client) CodeToSession(ctx context.Context, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}
	if c.appID == "" || c.secret == "" {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("appid", c.appID)
	query.Set("secret", c.secret)
	query.Set("js_code", code)
	query.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ErrCode != 0 || session.OpenID == "" {
		c.log.Warn("jscode2session failed", zap.Int("errcode", session.ErrCode), zap.String("errmsg", session.ErrMsg))
		return nil, fmt.Errorf("%w: %s", ErrProvider, session.ErrMsg)
	}
	return &session, nil
}
