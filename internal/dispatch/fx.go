package dispatch

import (
	"github.com/tablyhq/tably/pkg/printer"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatch",
	fx.Provide(
		NewRedisClient,
		NewLocker,
		printer.NewTransport,
		NewDispatcher,
	),
)
