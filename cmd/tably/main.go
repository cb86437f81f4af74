package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/internal/bill"
	"github.com/tablyhq/tably/internal/billperiod"
	"github.com/tablyhq/tably/internal/catalog"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/config"
	"github.com/tablyhq/tably/internal/dispatch"
	"github.com/tablyhq/tably/internal/events"
	"github.com/tablyhq/tably/internal/migration"
	"github.com/tablyhq/tably/internal/organization"
	"github.com/tablyhq/tably/internal/printersetup"
	"github.com/tablyhq/tably/internal/scheduler"
	"github.com/tablyhq/tably/internal/server"
	"github.com/tablyhq/tably/pkg/db"
	"github.com/tablyhq/tably/pkg/log"
	"github.com/tablyhq/tably/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		log.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		events.Module,

		// domain modules
		organization.Module,
		catalog.Module,
		printersetup.Module,
		bill.Module,
		billperiod.Module,
		dispatch.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id generator. TERMINAL_NODE_ID must differ
// between terminals sharing one database so ids never collide.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("TERMINAL_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}
