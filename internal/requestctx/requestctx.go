// Package requestctx carries per-request metadata (client IP, user
// agent, request id) through context so services below the HTTP layer
// can stamp it onto audit entries without touching gin.
package requestctx

import "context"

type contextKey string

const (
	ipAddressKey contextKey = "requestctx.ip"
	userAgentKey contextKey = "requestctx.ua"
	requestIDKey contextKey = "requestctx.id"
)

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey, ip)
}

func IPAddress(ctx context.Context) string {
	value, _ := ctx.Value(ipAddressKey).(string)
	return value
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey, ua)
}

func UserAgent(ctx context.Context) string {
	value, _ := ctx.Value(userAgentKey).(string)
	return value
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}
