// Package server exposes the terminal's HTTP surface: bill operations,
// catalog reads, printer setup, periods and reports.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	perioddomain "github.com/tablyhq/tably/internal/billperiod/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/config"
	"github.com/tablyhq/tably/internal/dispatch"
	"github.com/tablyhq/tably/internal/events"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"github.com/tablyhq/tably/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	billSvc    billdomain.Service
	periodSvc  perioddomain.Service
	catalogSvc catalogdomain.Service
	printerSvc printerdomain.Service
	orgSvc     organizationdomain.Service
	dispatcher *dispatch.Dispatcher
	hub        *events.Hub
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	BillSvc    billdomain.Service
	PeriodSvc  perioddomain.Service
	CatalogSvc catalogdomain.Service
	PrinterSvc printerdomain.Service
	OrgSvc     organizationdomain.Service
	Dispatcher *dispatch.Dispatcher
	Hub        *events.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		billSvc:    p.BillSvc,
		periodSvc:  p.PeriodSvc,
		catalogSvc: p.CatalogSvc,
		printerSvc: p.PrinterSvc,
		orgSvc:     p.OrgSvc,
		dispatcher: p.Dispatcher,
		hub:        p.Hub,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Periods & reports --------
	v1.GET("/periods", s.ListPeriods)
	v1.POST("/periods", s.OpenPeriod)
	v1.GET("/periods/current", s.CurrentPeriod)
	v1.POST("/periods/:id/close", s.ClosePeriod)
	v1.GET("/periods/:id/report", s.PeriodReport)
	v1.GET("/periods/:id/rollup", s.PeriodRollup)
	v1.POST("/periods/:id/rollup", s.RefreshRollup)
	v1.GET("/periods/:id/bills", s.ListBills)

	// -------- Bills --------
	v1.POST("/bills", s.OpenBill)
	v1.GET("/bills/:id", s.GetBill)
	v1.GET("/bills/:id/summary", s.BillSummary)
	v1.GET("/bills/:id/events", s.StreamBillEvents)
	v1.POST("/bills/:id/items", s.AddItems)
	v1.POST("/bills/:id/payments", s.AddPayment)
	v1.POST("/bills/:id/discounts", s.AddDiscount)
	v1.POST("/bills/:id/calls", s.AddCall)
	v1.POST("/bills/:id/items/:itemId/void", s.VoidItem)
	v1.POST("/bills/:id/items/:itemId/comp", s.CompItem)
	v1.POST("/bills/:id/store", s.StoreBill)
	v1.POST("/bills/:id/print", s.PrintBill)
	v1.POST("/bills/:id/close", s.CloseBill)

	// -------- Catalog --------
	v1.GET("/pricegroups", s.ListPriceGroups)
	v1.GET("/pricegroups/:id/items", s.ListSellableItems)
	v1.GET("/items/:id/modifiers", s.ListItemModifiers)
	v1.GET("/discounts", s.ListDiscounts)
	v1.GET("/reasons", s.ListReasons)

	// -------- Printers & settings --------
	v1.GET("/printers", s.ListPrinters)
	v1.GET("/organization", s.GetOrganization)
	v1.PUT("/organization", s.UpdateOrganization)
}

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return 0, false
	}
	return id, true
}
