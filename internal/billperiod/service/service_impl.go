package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/bill/summary"
	"github.com/tablyhq/tably/internal/billperiod/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Hub   *events.Hub `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	hub   *events.Hub
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billperiod.service"),
		genID: p.GenID,
		clock: p.Clock,
		hub:   p.Hub,
	}
}

func (s *Service) OpenPeriod(ctx context.Context) (billdomain.BillPeriod, error) {
	now := s.clock.Now()
	period := billdomain.BillPeriod{
		ID:        s.genID.Generate(),
		OpenedAt:  now,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&billdomain.BillPeriod{}).
			Where("closed_at IS NULL").Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPeriodAlreadyOpen
		}
		return tx.Create(&period).Error
	})
	if err != nil {
		return billdomain.BillPeriod{}, err
	}

	s.log.Info("bill period opened", zap.Int64("period_id", int64(period.ID)))
	return period, nil
}

func (s *Service) ClosePeriod(ctx context.Context, periodID snowflake.ID) error {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period billdomain.BillPeriod
		if err := tx.First(&period, "id = ?", periodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return billdomain.ErrPeriodNotFound
			}
			return err
		}
		if period.ClosedAt != nil {
			return nil
		}

		var open int64
		if err := tx.Model(&billdomain.Bill{}).
			Where("bill_period_id = ? AND is_closed = ?", periodID, false).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrOpenBillsRemain
		}

		return tx.Model(&billdomain.BillPeriod{}).
			Where("id = ? AND closed_at IS NULL", periodID).
			Update("closed_at", now).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("bill period closed", zap.Int64("period_id", int64(periodID)))
	return nil
}

func (s *Service) CurrentPeriod(ctx context.Context) (billdomain.BillPeriod, error) {
	var period billdomain.BillPeriod
	err := s.db.WithContext(ctx).
		Where("closed_at IS NULL").Order("opened_at DESC").First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.BillPeriod{}, domain.ErrNoOpenPeriod
		}
		return billdomain.BillPeriod{}, err
	}
	return period, nil
}

func (s *Service) GetPeriod(ctx context.Context, periodID snowflake.ID) (billdomain.BillPeriod, error) {
	var period billdomain.BillPeriod
	if err := s.db.WithContext(ctx).First(&period, "id = ?", periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.BillPeriod{}, billdomain.ErrPeriodNotFound
		}
		return billdomain.BillPeriod{}, err
	}
	return period, nil
}

func (s *Service) ListPeriods(ctx context.Context) ([]billdomain.BillPeriod, error) {
	var periods []billdomain.BillPeriod
	err := s.db.WithContext(ctx).Order("opened_at DESC").Find(&periods).Error
	return periods, err
}

// PeriodReport aggregates every bill in the period through the same
// summary calculator the payment screen uses. Closed bills carry their
// finalized closing amounts so nothing is recomputed for them.
func (s *Service) PeriodReport(ctx context.Context, periodID snowflake.ID) (domain.Report, error) {
	period, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return domain.Report{}, err
	}

	var bills []billdomain.Bill
	if err := s.db.WithContext(ctx).
		Where("bill_period_id = ?", periodID).Order("ref_number ASC").Find(&bills).Error; err != nil {
		return domain.Report{}, err
	}

	report := domain.Report{
		Period:         period,
		BillCount:      len(bills),
		PaymentsByType: make(map[string]int64),
		GeneratedAt:    s.clock.Now(),
	}

	discountCatalog, err := s.discountCatalog(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	for _, bill := range bills {
		if bill.IsClosed {
			report.ClosedBillCount++
		}

		var items []billdomain.BillItem
		if err := s.db.WithContext(ctx).Where("bill_id = ?", bill.ID).Find(&items).Error; err != nil {
			return domain.Report{}, err
		}
		var modItems []billdomain.BillItemModifierItem
		if err := s.db.WithContext(ctx).Where("bill_item_id IN (?)",
			s.db.Model(&billdomain.BillItem{}).Select("id").Where("bill_id = ?", bill.ID),
		).Find(&modItems).Error; err != nil {
			return domain.Report{}, err
		}
		var discounts []billdomain.BillDiscount
		if err := s.db.WithContext(ctx).Where("bill_id = ?", bill.ID).Find(&discounts).Error; err != nil {
			return domain.Report{}, err
		}
		var payments []billdomain.BillPayment
		if err := s.db.WithContext(ctx).Where("bill_id = ?", bill.ID).Find(&payments).Error; err != nil {
			return domain.Report{}, err
		}

		charges, lines, tenders := billdomain.SummaryInput(items, modItems, discounts, payments)
		sum := summary.Calculate(charges, lines, tenders, discountCatalog)

		report.Gross += sum.Total
		report.TotalDiscounts += sum.TotalDiscount
		report.TotalPayments += sum.TotalPayments

		for _, item := range items {
			if item.IsVoided {
				report.VoidedItemCount++
			}
			if item.IsComp {
				report.CompedItemCount++
			}
		}
		for _, payment := range payments {
			if payment.IsChange {
				report.PaymentsByType[payment.PaymentTypeName] -= payment.Amount
				continue
			}
			report.PaymentsByType[payment.PaymentTypeName] += payment.Amount
		}
	}

	return report, nil
}

// RefreshRollup persists the report as one row per period. Re-running it
// replaces the previous row.
func (s *Service) RefreshRollup(ctx context.Context, periodID snowflake.ID) (domain.PeriodReportRollup, error) {
	report, err := s.PeriodReport(ctx, periodID)
	if err != nil {
		return domain.PeriodReportRollup{}, err
	}

	paymentsByType := make(datatypes.JSONMap, len(report.PaymentsByType))
	for name, amount := range report.PaymentsByType {
		paymentsByType[name] = amount
	}

	rollup := domain.PeriodReportRollup{
		ID:              s.genID.Generate(),
		BillPeriodID:    periodID,
		BillCount:       report.BillCount,
		ClosedBillCount: report.ClosedBillCount,
		Gross:           report.Gross,
		TotalDiscounts:  report.TotalDiscounts,
		TotalPayments:   report.TotalPayments,
		VoidedItemCount: report.VoidedItemCount,
		CompedItemCount: report.CompedItemCount,
		PaymentsByType:  paymentsByType,
		GeneratedAt:     report.GeneratedAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_period_id = ?", periodID).
			Delete(&domain.PeriodReportRollup{}).Error; err != nil {
			return err
		}
		return tx.Create(&rollup).Error
	})
	if err != nil {
		return domain.PeriodReportRollup{}, err
	}

	if s.hub != nil {
		s.hub.Publish(periodID, events.Event{
			BillID:     periodID,
			Kind:       events.KindPeriodChanged,
			OccurredAt: report.GeneratedAt,
		})
	}
	return rollup, nil
}

func (s *Service) GetRollup(ctx context.Context, periodID snowflake.ID) (domain.PeriodReportRollup, error) {
	var rollup domain.PeriodReportRollup
	err := s.db.WithContext(ctx).First(&rollup, "bill_period_id = ?", periodID).Error
	return rollup, err
}

func (s *Service) discountCatalog(ctx context.Context) (map[snowflake.ID]catalogdomain.Discount, error) {
	var discounts []catalogdomain.Discount
	if err := s.db.WithContext(ctx).Find(&discounts).Error; err != nil {
		return nil, err
	}
	catalog := make(map[snowflake.ID]catalogdomain.Discount, len(discounts))
	for _, d := range discounts {
		catalog[d.ID] = d
	}
	return catalog, nil
}
