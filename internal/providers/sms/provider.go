// Package sms is the outbound SMS notifier. Only the logging no-op
// implementation ships; a real gateway slots in behind the same
// interface.
package sms

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	Send(ctx context.Context, phone, message string) error
}

type LogProvider struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("providers.sms")}
}

func (p *LogProvider) Send(ctx context.Context, phone, message string) error {
	p.log.Info("sms send", zap.String("phone", phone), zap.Int("length", len(message)))
	return nil
}
