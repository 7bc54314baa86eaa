// Package google exchanges OAuth authorization codes for Google
// account profiles.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/zap"
)

const (
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	userinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	ErrMissingCode   = errors.New("google authorization code is required")
	ErrNotConfigured = errors.New("google oauth credentials not configured")
	ErrProvider      = errors.New("google provider error")
)

// Profile is the subset of the userinfo response the rest of the
// system cares about.
type Profile struct {
	ID          string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Picture     string `json:"picture"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IDToken     string `json:"id_token"`
}

type Client struct {
	log              *zap.Logger
	clientID         string
	clientSecret     string
	redirectURL      string
	tokenEndpoint    string
	userinfoEndpoint string
	http             *http.Client
}

func NewClient(log *zap.Logger, cfg config.Config) *Client {
	return &Client{
		log:              log.Named("google"),
		clientID:         cfg.GoogleClientID,
		clientSecret:     cfg.GoogleClientSecret,
		redirectURL:      cfg.GoogleRedirectURL,
		tokenEndpoint:    tokenEndpoint,
		userinfoEndpoint: userinfoEndpoint,
		http:             &http.Client{Timeout: 5 * time.Second},
	}
}

// ExchangeCode trades an authorization code for the account profile
// behind it. The redirect URI must match the one used on the consent
// screen; when empty the configured default is used.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}
	if c.clientID == "" || c.clientSecret == "" {
		return nil, ErrNotConfigured
	}
	if redirectURI == "" {
		redirectURI = c.redirectURL
	}

	token, err := c.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	return c.fetchProfile(ctx, token.AccessToken)
}

func (c *Client) exchange(ctx context.Context, code, redirectURI string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("token exchange failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: token exchange status %d", ErrProvider, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrProvider)
	}
	return &token, nil
}

func (c *Client) fetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("userinfo fetch failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: userinfo status %d", ErrProvider, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: userinfo missing subject", ErrProvider)
	}
	return &profile, nil
}
