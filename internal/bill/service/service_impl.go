package service

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/bill/summary"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/events"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"github.com/tablyhq/tably/pkg/db"
	"github.com/tablyhq/tably/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	CatalogSvc catalogdomain.Service
	PrinterSvc printerdomain.Service
	OrgSvc     organizationdomain.Service
	Hub        *events.Hub        `optional:"true"`
	Metrics    *telemetry.Metrics `optional:"true"`
}

// Service is the bill aggregate. All mutations against one bill are
// serialized through a per-bill lock; each mutation commits as one
// transaction so readers see either the pre- or post-state.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	catalogSvc catalogdomain.Service
	printerSvc printerdomain.Service
	orgSvc     organizationdomain.Service
	hub        *events.Hub
	metrics    *telemetry.Metrics

	billLocks sync.Map // snowflake.ID -> *sync.Mutex
}

func NewService(p Params) billdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bill.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		catalogSvc: p.CatalogSvc,
		printerSvc: p.PrinterSvc,
		orgSvc:     p.OrgSvc,
		hub:        p.Hub,
		metrics:    p.Metrics,
	}
}

// lockBill serializes mutating operations against one bill. Operations on
// different bills proceed concurrently.
func (s *Service) lockBill(billID snowflake.ID) func() {
	actual, _ := s.billLocks.LoadOrStore(billID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) publish(billID snowflake.ID, kind events.Kind) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(billID, events.Event{
		BillID:     billID,
		Kind:       kind,
		OccurredAt: s.clock.Now(),
	})
}

func (s *Service) OpenBill(ctx context.Context, periodID snowflake.ID, refNumber int) (billdomain.Bill, error) {
	var period billdomain.BillPeriod
	if err := s.db.WithContext(ctx).First(&period, "id = ?", periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.Bill{}, billdomain.ErrPeriodNotFound
		}
		return billdomain.Bill{}, err
	}
	if period.ClosedAt != nil {
		return billdomain.Bill{}, billdomain.ErrPeriodClosed
	}

	org, err := s.orgSvc.Get(ctx)
	if err != nil {
		return billdomain.Bill{}, err
	}
	if refNumber < 1 || refNumber > org.MaxOpenBills {
		return billdomain.Bill{}, billdomain.ErrMaxOpenBills
	}

	now := s.clock.Now()
	bill := billdomain.Bill{
		ID:           s.genID.Generate(),
		BillPeriodID: periodID,
		RefNumber:    refNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&bill).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return billdomain.Bill{}, billdomain.ErrRefNumberTaken
		}
		return billdomain.Bill{}, err
	}

	s.publish(bill.ID, events.KindBillOpened)
	return bill, nil
}

func (s *Service) loadBill(ctx context.Context, tx *gorm.DB, billID snowflake.ID) (billdomain.Bill, error) {
	var bill billdomain.Bill
	if err := tx.WithContext(ctx).First(&bill, "id = ?", billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.Bill{}, billdomain.ErrBillNotFound
		}
		return billdomain.Bill{}, err
	}
	return bill, nil
}

func (s *Service) loadOpenBill(ctx context.Context, tx *gorm.DB, billID snowflake.ID) (billdomain.Bill, error) {
	bill, err := s.loadBill(ctx, tx, billID)
	if err != nil {
		return billdomain.Bill{}, err
	}
	if bill.IsClosed {
		return billdomain.Bill{}, billdomain.ErrBillClosed
	}
	return bill, nil
}

type ledgerRecords struct {
	Items     []billdomain.BillItem
	Modifiers []billdomain.BillItemModifier
	ModItems  []billdomain.BillItemModifierItem
	Discounts []billdomain.BillDiscount
	Payments  []billdomain.BillPayment
}

func (s *Service) loadLedger(ctx context.Context, tx *gorm.DB, billID snowflake.ID) (ledgerRecords, error) {
	var records ledgerRecords
	if err := tx.WithContext(ctx).Where("bill_id = ?", billID).Order("created_at ASC, id ASC").Find(&records.Items).Error; err != nil {
		return records, err
	}
	if err := tx.WithContext(ctx).Where("bill_item_id IN (SELECT id FROM bill_items WHERE bill_id = ?)", billID).Find(&records.Modifiers).Error; err != nil {
		return records, err
	}
	if err := tx.WithContext(ctx).Where("bill_item_id IN (SELECT id FROM bill_items WHERE bill_id = ?)", billID).Find(&records.ModItems).Error; err != nil {
		return records, err
	}
	if err := tx.WithContext(ctx).Where("bill_id = ?", billID).Order("created_at ASC, id ASC").Find(&records.Discounts).Error; err != nil {
		return records, err
	}
	if err := tx.WithContext(ctx).Where("bill_id = ?", billID).Order("created_at ASC, id ASC").Find(&records.Payments).Error; err != nil {
		return records, err
	}
	return records, nil
}

func (s *Service) discountCatalog(ctx context.Context, discounts []billdomain.BillDiscount) map[snowflake.ID]catalogdomain.Discount {
	catalog := make(map[snowflake.ID]catalogdomain.Discount, len(discounts))
	for _, line := range discounts {
		if _, ok := catalog[line.DiscountID]; ok {
			continue
		}
		def, err := s.catalogSvc.GetDiscount(ctx, line.DiscountID)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrDiscountNotFound) {
				// Deleted catalog entry degrades to a zero discount.
				s.log.Warn("bill discount references missing catalog discount",
					zap.String("bill_discount_id", line.ID.String()),
					zap.String("discount_id", line.DiscountID.String()))
				continue
			}
			s.log.Warn("failed to resolve discount definition",
				zap.String("discount_id", line.DiscountID.String()), zap.Error(err))
			continue
		}
		catalog[line.DiscountID] = def
	}
	return catalog
}

func (s *Service) summarize(ctx context.Context, records ledgerRecords) summary.Summary {
	items, lines, payments := billdomain.SummaryInput(records.Items, records.ModItems, records.Discounts, records.Payments)
	return summary.Calculate(items, lines, payments, s.discountCatalog(ctx, records.Discounts))
}

func (s *Service) Summary(ctx context.Context, billID snowflake.ID) (summary.Summary, error) {
	if _, err := s.loadBill(ctx, s.db, billID); err != nil {
		return summary.Summary{}, err
	}
	records, err := s.loadLedger(ctx, s.db, billID)
	if err != nil {
		return summary.Summary{}, err
	}
	return s.summarize(ctx, records), nil
}

func (s *Service) PrintState(ctx context.Context, billID snowflake.ID) (billdomain.PrintState, error) {
	statuses, err := s.printLogStatuses(ctx, billID)
	if err != nil {
		return billdomain.PrintState{}, err
	}
	return billdomain.DerivePrintState(statuses), nil
}

func (s *Service) printLogStatuses(ctx context.Context, billID snowflake.ID) ([]billdomain.PrintLogStatus, error) {
	var itemStatuses []billdomain.PrintLogStatus
	if err := s.db.WithContext(ctx).Model(&billdomain.BillItemPrintLog{}).
		Where("bill_id = ?", billID).Pluck("status", &itemStatuses).Error; err != nil {
		return nil, err
	}
	var callStatuses []billdomain.PrintLogStatus
	if err := s.db.WithContext(ctx).Model(&billdomain.BillCallPrintLog{}).
		Where("bill_id = ?", billID).Pluck("status", &callStatuses).Error; err != nil {
		return nil, err
	}
	return append(itemStatuses, callStatuses...), nil
}

func (s *Service) GetBill(ctx context.Context, billID snowflake.ID) (billdomain.BillDetail, error) {
	bill, err := s.loadBill(ctx, s.db, billID)
	if err != nil {
		return billdomain.BillDetail{}, err
	}
	records, err := s.loadLedger(ctx, s.db, billID)
	if err != nil {
		return billdomain.BillDetail{}, err
	}
	var printLogs []billdomain.BillItemPrintLog
	if err := s.db.WithContext(ctx).Where("bill_id = ?", billID).Order("created_at ASC, id ASC").Find(&printLogs).Error; err != nil {
		return billdomain.BillDetail{}, err
	}

	return billdomain.BillDetail{
		Bill:      bill,
		Items:     records.Items,
		Modifiers: records.Modifiers,
		ModItems:  records.ModItems,
		Discounts: records.Discounts,
		Payments:  records.Payments,
		PrintLogs: printLogs,
		Summary:   s.summarize(ctx, records),
	}, nil
}

func (s *Service) ListBills(ctx context.Context, periodID snowflake.ID) ([]billdomain.BillRow, error) {
	var bills []billdomain.Bill
	if err := s.db.WithContext(ctx).Where("bill_period_id = ?", periodID).
		Order("ref_number ASC").Find(&bills).Error; err != nil {
		return nil, err
	}

	rows := make([]billdomain.BillRow, 0, len(bills))
	for _, bill := range bills {
		statuses, err := s.printLogStatuses(ctx, bill.ID)
		if err != nil {
			return nil, err
		}
		state := billdomain.DerivePrintState(statuses)
		rows = append(rows, billdomain.BillRow{Bill: bill, PrintState: state, Badge: state.Badge()})
	}
	return rows, nil
}
