package session

import (
	"github.com/smallbiznis/passage/internal/session/repository"
	"github.com/smallbiznis/passage/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(NewCookieManager),
)
