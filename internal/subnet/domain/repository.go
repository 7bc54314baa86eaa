package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, subnet *ApprovedSubnet) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]ApprovedSubnet, error)
	DeleteForUser(ctx context.Context, userID, id snowflake.ID) error
}
