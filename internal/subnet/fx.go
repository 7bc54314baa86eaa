package subnet

import (
	"github.com/smallbiznis/passage/internal/subnet/repository"
	"github.com/smallbiznis/passage/internal/subnet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subnet",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
