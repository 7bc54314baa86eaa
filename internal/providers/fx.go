package providers

import (
	"github.com/smallbiznis/passage/internal/providers/email"
	"github.com/smallbiznis/passage/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	sms.Module,
)
