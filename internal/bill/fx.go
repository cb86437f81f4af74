package bill

import (
	"github.com/tablyhq/tably/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(service.NewService),
)
