package wechat

import "go.uber.org/fx"

var Module = fx.Module("wechat",
	fx.Provide(NewClient),
)
