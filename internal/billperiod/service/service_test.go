package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/billperiod/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newPeriodService(t *testing.T, name string) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{DB: gdb, Log: zap.NewNop(), GenID: node, Clock: clk})
	return svc, gdb, node, clk
}

func TestPeriodLifecycle(t *testing.T) {
	svc, gdb, node, clk := newPeriodService(t, "period_lifecycle")
	ctx := context.Background()

	_, err := svc.CurrentPeriod(ctx)
	assert.ErrorIs(t, err, domain.ErrNoOpenPeriod)

	period, err := svc.OpenPeriod(ctx)
	require.NoError(t, err)

	// Only one period may be open at a time.
	_, err = svc.OpenPeriod(ctx)
	assert.ErrorIs(t, err, domain.ErrPeriodAlreadyOpen)

	current, err := svc.CurrentPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, period.ID, current.ID)

	// An open bill blocks the close.
	bill := billdomain.Bill{ID: node.Generate(), BillPeriodID: period.ID, RefNumber: 1}
	require.NoError(t, gdb.Create(&bill).Error)
	err = svc.ClosePeriod(ctx, period.ID)
	assert.ErrorIs(t, err, domain.ErrOpenBillsRemain)

	closedAt := clk.Now()
	require.NoError(t, gdb.Model(&billdomain.Bill{}).
		Where("id = ?", bill.ID).
		Updates(map[string]any{"is_closed": true, "closed_at": closedAt}).Error)

	require.NoError(t, svc.ClosePeriod(ctx, period.ID))
	// Closing again is a no-op.
	require.NoError(t, svc.ClosePeriod(ctx, period.ID))

	_, err = svc.CurrentPeriod(ctx)
	assert.ErrorIs(t, err, domain.ErrNoOpenPeriod)

	// A closed period frees the next open.
	next, err := svc.OpenPeriod(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, period.ID, next.ID)

	periods, err := svc.ListPeriods(ctx)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
}

func TestClosePeriod_NotFound(t *testing.T) {
	svc, _, node, _ := newPeriodService(t, "period_notfound")
	err := svc.ClosePeriod(context.Background(), node.Generate())
	assert.ErrorIs(t, err, billdomain.ErrPeriodNotFound)
}

// seedReportPeriod builds one period holding a closed bill (total 1000,
// 10% discount finalized at 100, paid 900 cash) and an open bill with a
// voided and a comped item alongside one live 500 item.
func seedReportPeriod(t *testing.T, gdb *gorm.DB, node *snowflake.Node, now time.Time) snowflake.ID {
	t.Helper()

	period := billdomain.BillPeriod{ID: node.Generate(), OpenedAt: now}
	require.NoError(t, gdb.Create(&period).Error)

	discount := catalogdomain.Discount{
		ID: node.Generate(), Name: "Happy Hour", Kind: catalogdomain.DiscountPercentage, Value: 10,
	}
	require.NoError(t, gdb.Create(&discount).Error)

	closedAt := now
	closed := billdomain.Bill{
		ID: node.Generate(), BillPeriodID: period.ID, RefNumber: 1,
		IsClosed: true, ClosedAt: &closedAt,
	}
	require.NoError(t, gdb.Create(&closed).Error)
	require.NoError(t, gdb.Create(&billdomain.BillItem{
		ID: node.Generate(), BillID: closed.ID,
		ItemID: node.Generate(), ItemName: "Burger", ItemShortName: "BRG", ItemPrice: 1000,
		PriceGroupID: node.Generate(), PriceGroupName: "Dine-in",
		CategoryID: node.Generate(), CategoryName: "Mains",
	}).Error)
	closingAmount := int64(100)
	require.NoError(t, gdb.Create(&billdomain.BillDiscount{
		ID: node.Generate(), BillID: closed.ID,
		DiscountID: discount.ID, DiscountName: discount.Name,
		ClosingAmount: &closingAmount,
	}).Error)
	require.NoError(t, gdb.Create(&billdomain.BillPayment{
		ID: node.Generate(), BillID: closed.ID,
		PaymentTypeID: node.Generate(), PaymentTypeName: "Cash", Amount: 900,
	}).Error)

	open := billdomain.Bill{ID: node.Generate(), BillPeriodID: period.ID, RefNumber: 2}
	require.NoError(t, gdb.Create(&open).Error)
	require.NoError(t, gdb.Create(&billdomain.BillItem{
		ID: node.Generate(), BillID: open.ID,
		ItemID: node.Generate(), ItemName: "Fries", ItemShortName: "FRS", ItemPrice: 500,
		PriceGroupID: node.Generate(), PriceGroupName: "Dine-in",
		CategoryID: node.Generate(), CategoryName: "Sides",
	}).Error)
	require.NoError(t, gdb.Create(&billdomain.BillItem{
		ID: node.Generate(), BillID: open.ID,
		ItemID: node.Generate(), ItemName: "Cola", ItemShortName: "COL", ItemPrice: 300,
		PriceGroupID: node.Generate(), PriceGroupName: "Dine-in",
		CategoryID: node.Generate(), CategoryName: "Drinks",
		IsVoided: true,
	}).Error)
	require.NoError(t, gdb.Create(&billdomain.BillItem{
		ID: node.Generate(), BillID: open.ID,
		ItemID: node.Generate(), ItemName: "Soup", ItemShortName: "SOP", ItemPrice: 400,
		PriceGroupID: node.Generate(), PriceGroupName: "Dine-in",
		CategoryID: node.Generate(), CategoryName: "Starters",
		IsComp: true,
	}).Error)

	return period.ID
}

func TestPeriodReport(t *testing.T) {
	svc, gdb, node, clk := newPeriodService(t, "period_report")
	ctx := context.Background()
	periodID := seedReportPeriod(t, gdb, node, clk.Now())

	report, err := svc.PeriodReport(ctx, periodID)
	require.NoError(t, err)

	assert.Equal(t, 2, report.BillCount)
	assert.Equal(t, 1, report.ClosedBillCount)
	// 1000 from the closed bill plus the open bill's 500 live item;
	// voided and comped items carry no charge.
	assert.Equal(t, int64(1500), report.Gross)
	assert.Equal(t, int64(100), report.TotalDiscounts)
	assert.Equal(t, int64(900), report.TotalPayments)
	assert.Equal(t, int64(900), report.PaymentsByType["Cash"])
	assert.Equal(t, 1, report.VoidedItemCount)
	assert.Equal(t, 1, report.CompedItemCount)
}

func TestRefreshRollup_ReplacesPreviousRow(t *testing.T) {
	svc, gdb, node, clk := newPeriodService(t, "period_rollup")
	ctx := context.Background()
	periodID := seedReportPeriod(t, gdb, node, clk.Now())

	first, err := svc.RefreshRollup(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), first.Gross)

	// More activity lands, the refresh replaces the single row.
	require.NoError(t, gdb.Create(&billdomain.BillPayment{
		ID: node.Generate(), BillID: node.Generate(), PaymentTypeID: node.Generate(),
		PaymentTypeName: "Cash", Amount: 100,
	}).Error)
	bill := billdomain.Bill{ID: node.Generate(), BillPeriodID: periodID, RefNumber: 3}
	require.NoError(t, gdb.Create(&bill).Error)
	require.NoError(t, gdb.Create(&billdomain.BillItem{
		ID: node.Generate(), BillID: bill.ID,
		ItemID: node.Generate(), ItemName: "Tea", ItemShortName: "TEA", ItemPrice: 250,
		PriceGroupID: node.Generate(), PriceGroupName: "Dine-in",
		CategoryID: node.Generate(), CategoryName: "Drinks",
	}).Error)

	second, err := svc.RefreshRollup(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, int64(1750), second.Gross)
	assert.Equal(t, 3, second.BillCount)

	var count int64
	require.NoError(t, gdb.Model(&domain.PeriodReportRollup{}).
		Where("bill_period_id = ?", periodID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := svc.GetRollup(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, stored.ID)
	assert.Equal(t, int64(1750), stored.Gross)
}
