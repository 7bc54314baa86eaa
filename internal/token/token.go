// Package token signs and verifies the bearer credentials used across the
// service: short-lived user access tokens, long-lived refresh tokens, and
// the email/subnet approval tokens embedded in notification links.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/smallbiznis/passage/internal/config"
)

// Subject tags a token with its verification namespace. Every subject signs
// with its own derived key, so a refresh token can never pass access-token
// verification even if the claims line up.
type Subject string

const (
	SubjectUserAccessToken  Subject = "USER_ACCESS_TOKEN"
	SubjectUserRefreshToken Subject = "USER_REFRESH_TOKEN"
	SubjectApproveEmail     Subject = "APPROVE_EMAIL_TOKEN"
	SubjectApproveSubnet    Subject = "APPROVE_SUBNET_TOKEN"
)

const (
	// ApproveEmailTTL bounds the signup verification link.
	ApproveEmailTTL = 7 * 24 * time.Hour
	// ApproveSubnetTTL bounds the new-device approval link.
	ApproveSubnetTTL = 30 * time.Minute
)

// ErrInvalidToken covers bad signatures, subject mismatches and expiry.
// Callers that need a finer distinction (e.g. replay of a destroyed
// session) layer their own checks on top.
var ErrInvalidToken = errors.New("invalid token")

// UserTokenInfo is the decoded payload of a user access or refresh token.
type UserTokenInfo struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresInSeconds is the value exposed to clients as tokenExpiresInSeconds.
func (i UserTokenInfo) ExpiresInSeconds() int64 {
	return i.ExpiresAt.Unix() - i.IssuedAt.Unix()
}

type SignOptions struct {
	Subject   Subject
	ExpiresIn time.Duration
	// ExpiresAt, when set, pins the expiry to an exact instant instead
	// of ExpiresIn. Refresh rotation uses it to preserve the remaining
	// window of the original token.
	ExpiresAt time.Time
}

// Engine signs and verifies JWTs with per-subject derived keys.
type Engine struct {
	baseSecret []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewEngine(cfg config.Config) (*Engine, error) {
	secret := strings.TrimSpace(cfg.TokenSecret)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Engine{
		baseSecret: []byte(secret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// keyFor derives the signing key for a subject namespace from the base
// secret. Namespaces are mutually unverifiable.
func (e *Engine) keyFor(subject Subject) []byte {
	mac := hmac.New(sha256.New, e.baseSecret)
	mac.Write([]byte(subject))
	return mac.Sum(nil)
}

// Sign produces a signed, time-boxed credential binding payload to the
// given subject. Expiry is expressed in Unix-epoch seconds in the claims.
func (e *Engine) Sign(payload map[string]any, opts SignOptions) (string, error) {
	if opts.Subject == "" {
		return "", errors.New("token subject is required")
	}
	if opts.ExpiresIn <= 0 && opts.ExpiresAt.IsZero() {
		return "", errors.New("token expiry is required")
	}

	now := time.Now()
	exp := now.Add(opts.ExpiresIn)
	if !opts.ExpiresAt.IsZero() {
		exp = opts.ExpiresAt
	}
	// The jti claim keeps two tokens signed within the same second from
	// colliding; rotation depends on the new string differing.
	claims := jwt.MapClaims{
		"sub": string(opts.Subject),
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range payload {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(e.keyFor(opts.Subject))
}

// Verify decodes a token and checks signature, subject and expiry. Any
// failure surfaces as ErrInvalidToken; distinguishing well-formed but
// unauthorized tokens is the caller's business.
func (e *Engine) Verify(tokenString string, subject Subject) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(t *jwt.Token) (any, error) {
			return e.keyFor(subject), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(string(subject)),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (e *Engine) SignUserAccessToken(userID string) (string, error) {
	return e.Sign(map[string]any{"userId": userID}, SignOptions{
		Subject:   SubjectUserAccessToken,
		ExpiresIn: e.accessTTL,
	})
}

func (e *Engine) VerifyUserAccessToken(tokenString string) (UserTokenInfo, error) {
	return e.verifyUserToken(tokenString, SubjectUserAccessToken)
}

// SignUserRefreshToken signs a refresh token. A non-zero expiresAt
// overrides the configured lifetime; session rotation uses this to
// preserve the expiry of the original token instead of granting a full
// new window.
func (e *Engine) SignUserRefreshToken(userID string, expiresAt time.Time) (string, error) {
	return e.Sign(map[string]any{"userId": userID}, SignOptions{
		Subject:   SubjectUserRefreshToken,
		ExpiresIn: e.refreshTTL,
		ExpiresAt: expiresAt,
	})
}

func (e *Engine) VerifyUserRefreshToken(tokenString string) (UserTokenInfo, error) {
	return e.verifyUserToken(tokenString, SubjectUserRefreshToken)
}

func (e *Engine) SignApproveSubnetToken(userID string) (string, error) {
	return e.Sign(map[string]any{"userId": userID}, SignOptions{
		Subject:   SubjectApproveSubnet,
		ExpiresIn: ApproveSubnetTTL,
	})
}

func (e *Engine) VerifyApproveSubnetToken(tokenString string) (UserTokenInfo, error) {
	return e.verifyUserToken(tokenString, SubjectApproveSubnet)
}

func (e *Engine) SignApproveEmailToken(emailID string) (string, error) {
	return e.Sign(map[string]any{"emailId": emailID}, SignOptions{
		Subject:   SubjectApproveEmail,
		ExpiresIn: ApproveEmailTTL,
	})
}

// VerifyApproveEmailToken returns the email id the token was issued for.
func (e *Engine) VerifyApproveEmailToken(tokenString string) (string, error) {
	claims, err := e.Verify(tokenString, SubjectApproveEmail)
	if err != nil {
		return "", err
	}
	emailID, ok := claims["emailId"].(string)
	if !ok || strings.TrimSpace(emailID) == "" {
		return "", ErrInvalidToken
	}
	return emailID, nil
}

func (e *Engine) verifyUserToken(tokenString string, subject Subject) (UserTokenInfo, error) {
	claims, err := e.Verify(tokenString, subject)
	if err != nil {
		return UserTokenInfo{}, err
	}

	userID, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return UserTokenInfo{}, ErrInvalidToken
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return UserTokenInfo{}, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return UserTokenInfo{}, ErrInvalidToken
	}

	return UserTokenInfo{
		UserID:    userID,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}

// FromHTTPRequest extracts a bearer credential from the Authorization
// header. The scheme must be exactly "Bearer".
func FromHTTPRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
