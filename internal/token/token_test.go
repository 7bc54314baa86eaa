package token

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/passage/internal/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(config.Config{
		TokenSecret:     "test-secret",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngineRequiresSecret(t *testing.T) {
	_, err := NewEngine(config.Config{
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Minute,
	})
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	engine := newTestEngine(t)

	signed, err := engine.SignUserAccessToken("user-1")
	require.NoError(t, err)

	info, err := engine.VerifyUserAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, int64(600), info.ExpiresInSeconds())
}

func TestSubjectsAreIsolated(t *testing.T) {
	engine := newTestEngine(t)

	refresh, err := engine.SignUserRefreshToken("user-1", time.Time{})
	require.NoError(t, err)

	_, err = engine.VerifyUserAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := engine.SignUserAccessToken("user-1")
	require.NoError(t, err)

	_, err = engine.VerifyUserRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = engine.VerifyApproveSubnetToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	engine := newTestEngine(t)
	other, err := NewEngine(config.Config{
		TokenSecret:     "other-secret",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	})
	require.NoError(t, err)

	signed, err := other.SignUserAccessToken("user-1")
	require.NoError(t, err)

	_, err = engine.VerifyUserAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenPinnedExpiry(t *testing.T) {
	engine := newTestEngine(t)

	pinned := time.Now().Add(90 * time.Second)
	signed, err := engine.SignUserRefreshToken("user-1", pinned)
	require.NoError(t, err)

	info, err := engine.VerifyUserRefreshToken(signed)
	require.NoError(t, err)
	assert.Equal(t, pinned.Unix(), info.ExpiresAt.Unix())
}

func TestVerifyRejectsExpired(t *testing.T) {
	engine := newTestEngine(t)

	signed, err := engine.Sign(map[string]any{"userId": "user-1"}, SignOptions{
		Subject:   SubjectUserAccessToken,
		ExpiresIn: time.Nanosecond,
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = engine.VerifyUserAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestApproveEmailTokenRoundTrip(t *testing.T) {
	engine := newTestEngine(t)

	signed, err := engine.SignApproveEmailToken("email-42")
	require.NoError(t, err)

	emailID, err := engine.VerifyApproveEmailToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "email-42", emailID)
}

func TestFromHTTPRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/me", nil)
	_, ok := FromHTTPRequest(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = FromHTTPRequest(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	got, ok := FromHTTPRequest(r)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", got)
}
