package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/passage/internal/apikey/domain"
	"github.com/smallbiznis/passage/internal/cache"
	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/zap"
)

const (
	keyIDPrefix    = "pk_"
	secretBytes    = 32
	lookupCacheTTL = 5 * time.Minute
)

// Created is returned once at creation time and is the only moment the
// plaintext secret exists outside the caller.
type Created struct {
	KeyID  string
	Secret string
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	cache cache.Cache[string, domain.APIKey]
	genID *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, security *config.SecurityConfigHolder, genID *snowflake.Node) *Service {
	return &Service{
		log:   log.Named("apikey.service"),
		repo:  repo,
		cache: cache.NewLRU[string, domain.APIKey](security.Get().APIKeyCacheSize),
		genID: genID,
	}
}

// Create mints a key/secret pair for a user. The secret is stored
// hashed and never retrievable again.
func (s *Service) Create(ctx context.Context, userID snowflake.ID, name string, scopes []string) (*Created, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	plainSecret := hex.EncodeToString(secret)
	keyID := keyIDPrefix + strings.ToLower(ulid.Make().String())

	key := &domain.APIKey{
		ID:         s.genID.Generate(),
		UserID:     userID,
		KeyID:      keyID,
		Name:       name,
		Scopes:     scopes,
		SecretHash: domain.HashSecret(plainSecret),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	return &Created{KeyID: keyID, Secret: plainSecret}, nil
}

// Authenticate resolves a key/secret pair to the owning user. Lookups
// go through a bounded cache; the hash comparison never does.
func (s *Service) Authenticate(ctx context.Context, keyID, secret string) (snowflake.ID, error) {
	key, ok := s.cache.Get(keyID)
	if !ok {
		found, err := s.repo.FindByKeyID(ctx, keyID)
		if err != nil {
			return 0, err
		}
		key = *found
		s.cache.Set(keyID, key, lookupCacheTTL)
	}

	if !key.IsActive {
		return 0, domain.ErrKeyNotFound
	}
	presented := domain.HashSecret(secret)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(key.SecretHash)) != 1 {
		return 0, domain.ErrSecretMismatch
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, time.Now().UTC()); err != nil {
		s.log.Warn("touch api key", zap.String("key_id", keyID), zap.Error(err))
	}
	return key.UserID, nil
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.APIKey, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Revoke deactivates a key and drops it from the cache so the change
// takes effect immediately.
func (s *Service) Revoke(ctx context.Context, userID snowflake.ID, keyID string) error {
	if err := s.repo.Deactivate(ctx, userID, keyID); err != nil {
		return err
	}
	s.cache.Delete(keyID)
	return nil
}
