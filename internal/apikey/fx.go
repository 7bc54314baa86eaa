package apikey

import (
	"github.com/smallbiznis/passage/internal/apikey/repository"
	"github.com/smallbiznis/passage/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
