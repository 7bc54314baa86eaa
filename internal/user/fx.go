package user

import (
	"github.com/smallbiznis/passage/internal/user/repository"
	"github.com/smallbiznis/passage/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
