package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	FindByKeyID(ctx context.Context, keyID string) (*APIKey, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]APIKey, error)
	TouchLastUsed(ctx context.Context, id snowflake.ID, at time.Time) error
	Deactivate(ctx context.Context, userID snowflake.ID, keyID string) error
}
