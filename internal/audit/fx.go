package audit

import (
	"github.com/smallbiznis/passage/internal/audit/repository"
	"github.com/smallbiznis/passage/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
