package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, session *Session) error
	FindByAccessToken(ctx context.Context, accessToken string) (*Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Session, error)
	UpdateTokens(ctx context.Context, id snowflake.ID, accessToken, refreshToken string) error
	DeleteByID(ctx context.Context, id snowflake.ID) error
	DeleteByUser(ctx context.Context, userID snowflake.ID) error
}
