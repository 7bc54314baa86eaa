package verification

import (
	"github.com/smallbiznis/passage/internal/verification/repository"
	"github.com/smallbiznis/passage/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
