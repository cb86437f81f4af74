package printersetup

import (
	"github.com/tablyhq/tably/internal/printersetup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("printersetup.service",
	fx.Provide(service.NewService),
)
