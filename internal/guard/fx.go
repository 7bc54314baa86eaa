package guard

import "go.uber.org/fx"

var Module = fx.Module("guard",
	fx.Provide(New),
)
