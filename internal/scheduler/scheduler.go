// Package scheduler runs the recurring maintenance jobs: recovering print
// logs stranded in processing after a crash, and refreshing period report
// rollups.
package scheduler

import (
	"context"
	"errors"
	"time"

	cron "github.com/robfig/cron/v3"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	perioddomain "github.com/tablyhq/tably/internal/billperiod/domain"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/config"
	"github.com/tablyhq/tably/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const staleRecoveryDetail = "recovered after restart"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	PeriodSvc perioddomain.Service
	Metrics   *telemetry.Metrics `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	staleAfter time.Duration
	periodSvc  perioddomain.Service
	metrics    *telemetry.Metrics
	cron       *cron.Cron
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		clock:      p.Clock,
		staleAfter: time.Duration(p.Config.StaleProcessingAfter) * time.Second,
		periodSvc:  p.PeriodSvc,
		metrics:    p.Metrics,
		cron:       cron.New(),
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", func() {
		if err := s.RecoverStaleProcessing(context.Background()); err != nil {
			s.log.Error("stale processing recovery failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", func() {
		if err := s.RefreshCurrentPeriodRollup(context.Background()); err != nil {
			s.log.Error("period rollup refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RecoverStaleProcessing moves print logs stuck in processing past the
// configured age to errored. A log can strand there when the process dies
// between the processing claim and the outcome write; errored makes the
// next dispatch cycle pick it up again.
func (s *Scheduler) RecoverStaleProcessing(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.staleAfter)

	itemRes := s.db.WithContext(ctx).Model(&billdomain.BillItemPrintLog{}).
		Where("status = ? AND updated_at < ?", billdomain.PrintLogProcessing, cutoff).
		Updates(map[string]any{
			"status":     billdomain.PrintLogErrored,
			"detail":     staleRecoveryDetail,
			"updated_at": s.clock.Now(),
		})
	if itemRes.Error != nil {
		return itemRes.Error
	}

	callRes := s.db.WithContext(ctx).Model(&billdomain.BillCallPrintLog{}).
		Where("status = ? AND updated_at < ?", billdomain.PrintLogProcessing, cutoff).
		Updates(map[string]any{
			"status":     billdomain.PrintLogErrored,
			"detail":     staleRecoveryDetail,
			"updated_at": s.clock.Now(),
		})
	if callRes.Error != nil {
		return callRes.Error
	}

	if recovered := itemRes.RowsAffected + callRes.RowsAffected; recovered > 0 {
		s.log.Warn("recovered stale processing print logs",
			zap.Int64("count", recovered))
	}

	return s.updateBacklogGauge(ctx)
}

// updateBacklogGauge publishes the count of logs awaiting dispatch.
func (s *Scheduler) updateBacklogGauge(ctx context.Context) error {
	retryable := []billdomain.PrintLogStatus{billdomain.PrintLogPending, billdomain.PrintLogErrored}

	var itemCount int64
	if err := s.db.WithContext(ctx).Model(&billdomain.BillItemPrintLog{}).
		Where("status IN ?", retryable).Count(&itemCount).Error; err != nil {
		return err
	}
	var callCount int64
	if err := s.db.WithContext(ctx).Model(&billdomain.BillCallPrintLog{}).
		Where("status IN ?", retryable).Count(&callCount).Error; err != nil {
		return err
	}

	s.metrics.SetPendingLogs(int(itemCount + callCount))
	return nil
}

// RefreshCurrentPeriodRollup refreshes the open period's rollup row. No
// open period is not an error, the terminal may be between shifts.
func (s *Scheduler) RefreshCurrentPeriodRollup(ctx context.Context) error {
	period, err := s.periodSvc.CurrentPeriod(ctx)
	if err != nil {
		if errors.Is(err, perioddomain.ErrNoOpenPeriod) {
			return nil
		}
		return err
	}

	rollup, err := s.periodSvc.RefreshRollup(ctx, period.ID)
	if err != nil {
		return err
	}
	s.log.Info("period rollup refreshed",
		zap.Int64("period_id", int64(period.ID)),
		zap.Int64("rollup_id", int64(rollup.ID)))
	return nil
}
