package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// ReplaceActive flips every ACTIVE code for the new code's
	// (identifier, use) to INACTIVE and inserts the new code, as one
	// transaction.
	ReplaceActive(ctx context.Context, code *VerificationCode) error
	FindActive(ctx context.Context, identifier, use string) (*VerificationCode, error)
	MarkInactive(ctx context.Context, id snowflake.ID) error
}
