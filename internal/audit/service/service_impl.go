package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/passage/internal/audit/domain"
	"github.com/smallbiznis/passage/internal/requestctx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	log   *zap.Logger
	repo  auditdomain.Repository
	genID *snowflake.Node
}

func New(log *zap.Logger, repo auditdomain.Repository, genID *snowflake.Node) *Service {
	return &Service{
		log:   log.Named("audit.service"),
		repo:  repo,
		genID: genID,
	}
}

// Record writes one audit entry, stamping client IP, user agent and
// request id from the request context. Failures are logged, never
// surfaced: auditing must not break the flow it observes.
func (s *Service) Record(ctx context.Context, userID *snowflake.ID, event string, metadata map[string]any) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := requestctx.RequestID(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := &auditdomain.AuditLog{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Event:     event,
		Metadata:  datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}
	if ip := requestctx.IPAddress(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := requestctx.UserAgent(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("event", event), zap.Error(err))
	}
}

// List returns matching audit entries, newest first.
func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	if filter.StartAt != nil && filter.EndAt != nil && filter.StartAt.After(*filter.EndAt) {
		return nil, auditdomain.ErrInvalidTimeRange
	}
	return s.repo.List(ctx, filter)
}
