package billperiod

import (
	"github.com/tablyhq/tably/internal/billperiod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billperiod.service",
	fx.Provide(service.NewService),
)
