package geolocation

import (
	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("geolocation",
	fx.Provide(NewResolver),
)

// NewResolver builds the process-wide resolver: HTTP lookup behind a
// bounded cache sized from security config.
func NewResolver(log *zap.Logger, cfg config.Config, security *config.SecurityConfigHolder) Resolver {
	return NewCached(NewHTTPResolver(log, cfg), security.Get().GeolocationCacheSize)
}
