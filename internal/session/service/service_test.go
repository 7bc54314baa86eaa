package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/passage/internal/config"
	"github.com/smallbiznis/passage/internal/geolocation"
	sessiondomain "github.com/smallbiznis/passage/internal/session/domain"
	"github.com/smallbiznis/passage/internal/session/repository"
	"github.com/smallbiznis/passage/internal/token"
	"github.com/smallbiznis/passage/pkg/db"
	"go.uber.org/zap"
)

type staticResolver struct{}

func (staticResolver) Resolve(ctx context.Context, ip string) (geolocation.Location, error) {
	return geolocation.Location{City: "Berlin", Region: "BE", Timezone: "Europe/Berlin", CountryCode: "DE"}, nil
}

func newTestService(t *testing.T) (*Service, *token.Engine, sessiondomain.Repository, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&sessiondomain.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	engine, err := token.NewEngine(config.Config{
		TokenSecret:     "test-secret",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token engine: %v", err)
	}

	repo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(zap.NewNop(), repo, engine, staticResolver{}, node), engine, repo, node
}

func TestGenerateStoresDeviceAndLocationMetadata(t *testing.T) {
	svc, _, _, node := newTestService(t)

	issued, err := svc.Generate(context.Background(), GenerateRequest{
		UserID:    node.Generate(),
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	})
	if err != nil {
		t.Fatalf("failed to generate session: %v", err)
	}

	session := issued.Session
	if session.Browser != "Chrome" || session.OS != "Windows" {
		t.Fatalf("unexpected device metadata: %s / %s", session.Browser, session.OS)
	}
	if session.City != "Berlin" || session.CountryCode != "DE" {
		t.Fatalf("unexpected location metadata: %s / %s", session.City, session.CountryCode)
	}
	if issued.AccessExpiresIn != 600 {
		t.Fatalf("expected 600 seconds access lifetime, got %d", issued.AccessExpiresIn)
	}
}

func TestRefreshRotatesInPlaceAndPreservesExpiry(t *testing.T) {
	svc, engine, repo, node := newTestService(t)

	issued, err := svc.Generate(context.Background(), GenerateRequest{UserID: node.Generate()})
	if err != nil {
		t.Fatalf("failed to generate session: %v", err)
	}

	original := issued.Session.RefreshToken
	originalInfo, err := engine.VerifyUserRefreshToken(original)
	if err != nil {
		t.Fatalf("failed to verify refresh token: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), original)
	if err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	if rotated.Session.ID != issued.Session.ID {
		t.Fatal("refresh must keep the session identity")
	}
	if rotated.Session.RefreshToken == original {
		t.Fatal("refresh must rotate the refresh token")
	}

	rotatedInfo, err := engine.VerifyUserRefreshToken(rotated.Session.RefreshToken)
	if err != nil {
		t.Fatalf("failed to verify rotated token: %v", err)
	}
	if rotatedInfo.ExpiresAt.Unix() != originalInfo.ExpiresAt.Unix() {
		t.Fatalf("rotated expiry %v must equal original %v", rotatedInfo.ExpiresAt, originalInfo.ExpiresAt)
	}

	// The replaced token string no longer resolves to a live session.
	if _, err := repo.FindByRefreshToken(context.Background(), original); err != sessiondomain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for old token, got %v", err)
	}
}

func TestRefreshWithoutLiveSessionMintsNothing(t *testing.T) {
	svc, engine, _, node := newTestService(t)

	// Valid signature, but no session row backs it.
	orphan, err := engine.SignUserRefreshToken(node.Generate().String(), time.Time{})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), orphan); err != sessiondomain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRefreshVerifyFailureDestroysSession(t *testing.T) {
	svc, _, repo, node := newTestService(t)

	foreign, err := token.NewEngine(config.Config{
		TokenSecret:     "another-secret",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	badToken, err := foreign.SignUserRefreshToken("1", time.Time{})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	session := &sessiondomain.Session{
		ID:           node.Generate(),
		UserID:       node.Generate(),
		AccessToken:  "unused-access",
		RefreshToken: badToken,
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), badToken); err != token.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := repo.FindByRefreshToken(context.Background(), badToken); err != sessiondomain.ErrSessionNotFound {
		t.Fatalf("expected session destroyed, got %v", err)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	svc, _, _, node := newTestService(t)

	issued, err := svc.Generate(context.Background(), GenerateRequest{UserID: node.Generate()})
	if err != nil {
		t.Fatalf("failed to generate session: %v", err)
	}

	if err := svc.DestroyByAccessToken(context.Background(), issued.Session.AccessToken); err != nil {
		t.Fatalf("failed to destroy: %v", err)
	}
	if err := svc.DestroyByAccessToken(context.Background(), issued.Session.AccessToken); err != nil {
		t.Fatalf("second destroy must succeed: %v", err)
	}
	if err := svc.DestroyByRefreshToken(context.Background(), "never-issued"); err != nil {
		t.Fatalf("destroying unknown token must succeed: %v", err)
	}
}
