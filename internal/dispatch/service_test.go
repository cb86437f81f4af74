package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	billservice "github.com/tablyhq/tably/internal/bill/service"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	catalogservice "github.com/tablyhq/tably/internal/catalog/service"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/config"
	"github.com/tablyhq/tably/internal/migration"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	organizationservice "github.com/tablyhq/tably/internal/organization/service"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	printerservice "github.com/tablyhq/tably/internal/printersetup/service"
	"github.com/tablyhq/tably/pkg/printer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeTransport keys printers by address. Addresses in failing reject the
// connection; addresses in panicking panic mid-transmit.
type fakeTransport struct {
	mu        sync.Mutex
	failing   map[string]bool
	panicking map[string]bool
	sent      map[string][][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failing:   map[string]bool{},
		panicking: map[string]bool{},
		sent:      map[string][][]byte{},
	}
}

func (t *fakeTransport) Open(desc printer.Descriptor) (printer.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing[desc.Address] {
		return nil, errors.New("connection refused")
	}
	return &fakeConn{t: t, addr: desc.Address}, nil
}

func (t *fakeTransport) payloads(addr string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent[addr]
}

type fakeConn struct {
	t    *fakeTransport
	addr string
}

func (c *fakeConn) Transmit(payload []byte) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if c.t.panicking[c.addr] {
		panic("paper jam")
	}
	c.t.sent[c.addr] = append(c.t.sent[c.addr], payload)
	return nil
}

func (c *fakeConn) Close() error { return nil }

type dispatchFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	clk       *clock.FakeClock
	ctx       context.Context
	billSvc   billdomain.Service
	dsp       *Dispatcher
	transport *fakeTransport

	periodID   snowflake.ID
	priceGroup catalogdomain.PriceGroup
	item       catalogdomain.Item
	printers   []printerdomain.Printer
}

// newDispatchFixture wires a dispatcher over sqlite with a fake transport.
// The catalog holds one item priced at 1000 routed to two network printers;
// the first printer also receives bill calls.
func newDispatchFixture(t *testing.T, name string) *dispatchFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC))
	logger := zap.NewNop()
	ctx := context.Background()

	f := &dispatchFixture{db: gdb, node: node, clk: clk, ctx: ctx}

	require.NoError(t, gdb.Create(&organizationdomain.Organization{
		ID: node.Generate(), Name: "Main", MaxOpenBills: 100,
	}).Error)

	period := billdomain.BillPeriod{ID: node.Generate(), OpenedAt: clk.Now()}
	require.NoError(t, gdb.Create(&period).Error)
	f.periodID = period.ID

	f.priceGroup = catalogdomain.PriceGroup{ID: node.Generate(), Name: "Dine-in", ShortName: "DIN"}
	require.NoError(t, gdb.Create(&f.priceGroup).Error)

	group := printerdomain.PrinterGroup{ID: node.Generate(), Name: "Kitchen"}
	require.NoError(t, gdb.Create(&group).Error)
	for i := 0; i < 2; i++ {
		p := printerdomain.Printer{
			ID:                node.Generate(),
			Name:              fmt.Sprintf("Printer %d", i+1),
			ConnectionKind:    printer.ConnectionNetwork,
			Address:           fmt.Sprintf("10.0.0.%d:9100", i+1),
			ReceivesBillCalls: i == 0,
		}
		require.NoError(t, gdb.Create(&p).Error)
		require.NoError(t, gdb.Create(&printerdomain.PrinterGroupMember{
			ID: node.Generate(), PrinterGroupID: group.ID, PrinterID: p.ID,
		}).Error)
		f.printers = append(f.printers, p)
	}

	printCat := catalogdomain.PrintCategory{ID: node.Generate(), ShortName: "KITCHEN", DisplayOrder: 1}
	require.NoError(t, gdb.Create(&printCat).Error)
	category := catalogdomain.Category{
		ID: node.Generate(), Name: "Mains", ShortName: "MAINS", PrintCategoryID: &printCat.ID,
	}
	require.NoError(t, gdb.Create(&category).Error)

	f.item = catalogdomain.Item{
		ID: node.Generate(), CategoryID: category.ID,
		PrinterGroupID: &group.ID,
		Name:           "Burger", ShortName: "BRG",
	}
	require.NoError(t, gdb.Create(&f.item).Error)
	price := int64(1000)
	require.NoError(t, gdb.Create(&catalogdomain.ItemPrice{
		ID: node.Generate(), ItemID: f.item.ID, PriceGroupID: f.priceGroup.ID, Price: &price,
	}).Error)

	catalogSvc := catalogservice.NewService(catalogservice.Params{DB: gdb, Log: logger})
	printerSvc := printerservice.NewService(printerservice.Params{DB: gdb, Log: logger})
	orgSvc := organizationservice.NewService(organizationservice.Params{DB: gdb, Log: logger, GenID: node})
	f.billSvc = billservice.NewService(billservice.Params{
		DB: gdb, Log: logger, GenID: node, Clock: clk,
		CatalogSvc: catalogSvc, PrinterSvc: printerSvc, OrgSvc: orgSvc,
	})

	terminal, err := config.NewTerminalConfigHolder()
	require.NoError(t, err)

	f.transport = newFakeTransport()
	f.dsp = NewDispatcher(Params{
		DB:         gdb,
		Log:        logger,
		Clock:      clk,
		BillSvc:    f.billSvc,
		PrinterSvc: printerSvc,
		CatalogSvc: catalogSvc,
		Transport:  f.transport,
		Terminal:   terminal,
	})
	return f
}

func (f *dispatchFixture) openBillWithBurger(t *testing.T, ref int) billdomain.Bill {
	t.Helper()
	bill, err := f.billSvc.OpenBill(f.ctx, f.periodID, ref)
	require.NoError(t, err)
	_, err = f.billSvc.AddItems(f.ctx, bill.ID, billdomain.AddItemsRequest{
		ItemID: f.item.ID, PriceGroupID: f.priceGroup.ID, Quantity: 1,
	})
	require.NoError(t, err)
	return bill
}

func (f *dispatchFixture) logsByPrinter(t *testing.T, billID, printerID snowflake.ID) []billdomain.BillItemPrintLog {
	t.Helper()
	var logs []billdomain.BillItemPrintLog
	require.NoError(t, f.db.Where("bill_id = ? AND printer_id = ?", billID, printerID).Find(&logs).Error)
	return logs
}

func TestDispatchBill_AllPrintersSucceed(t *testing.T) {
	f := newDispatchFixture(t, "dispatch_ok")
	bill := f.openBillWithBurger(t, 7)

	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))

	for _, p := range f.printers {
		payloads := f.transport.payloads(p.Address)
		require.Len(t, payloads, 1)
		assert.Contains(t, string(payloads[0]), "TABLE 7")
		assert.Contains(t, string(payloads[0]), "1x Burger")
		for _, l := range f.logsByPrinter(t, bill.ID, p.ID) {
			assert.Equal(t, billdomain.PrintLogSucceeded, l.Status)
		}
	}

	state, err := f.billSvc.PrintState(f.ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.PrintBadgeNone, state.Badge())
}

func TestDispatchBill_OnePrinterFailureIsIsolated(t *testing.T) {
	f := newDispatchFixture(t, "dispatch_partial")
	bill := f.openBillWithBurger(t, 3)
	f.transport.failing[f.printers[1].Address] = true

	// The cycle itself succeeds; the failure lands on the one printer's log.
	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))

	require.Len(t, f.transport.payloads(f.printers[0].Address), 1)
	for _, l := range f.logsByPrinter(t, bill.ID, f.printers[0].ID) {
		assert.Equal(t, billdomain.PrintLogSucceeded, l.Status)
	}
	for _, l := range f.logsByPrinter(t, bill.ID, f.printers[1].ID) {
		assert.Equal(t, billdomain.PrintLogErrored, l.Status)
		assert.Equal(t, "connection refused", l.Detail)
	}

	state, err := f.billSvc.PrintState(f.ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.PrintBadgeError, state.Badge())

	// Recovery: the next cycle retries only the errored log.
	f.transport.failing[f.printers[1].Address] = false
	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))

	require.Len(t, f.transport.payloads(f.printers[0].Address), 1)
	require.Len(t, f.transport.payloads(f.printers[1].Address), 1)
	for _, l := range f.logsByPrinter(t, bill.ID, f.printers[1].ID) {
		assert.Equal(t, billdomain.PrintLogSucceeded, l.Status)
	}
	state, err = f.billSvc.PrintState(f.ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, billdomain.PrintBadgeNone, state.Badge())
}

func TestDispatchBill_PanicLandsErrored(t *testing.T) {
	f := newDispatchFixture(t, "dispatch_panic")
	bill := f.openBillWithBurger(t, 4)
	f.transport.panicking[f.printers[0].Address] = true

	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))

	for _, l := range f.logsByPrinter(t, bill.ID, f.printers[0].ID) {
		assert.Equal(t, billdomain.PrintLogErrored, l.Status)
		assert.Contains(t, l.Detail, "printer panic")
	}
	for _, l := range f.logsByPrinter(t, bill.ID, f.printers[1].ID) {
		assert.Equal(t, billdomain.PrintLogSucceeded, l.Status)
	}
}

func TestDispatchBill_EmptyCycleIsNoop(t *testing.T) {
	f := newDispatchFixture(t, "dispatch_empty")
	bill, err := f.billSvc.OpenBill(f.ctx, f.periodID, 9)
	require.NoError(t, err)

	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))
	assert.Empty(t, f.transport.payloads(f.printers[0].Address))
	assert.Empty(t, f.transport.payloads(f.printers[1].Address))
}

func TestDispatchBill_CallRoutesToCallPrinters(t *testing.T) {
	f := newDispatchFixture(t, "dispatch_call")
	bill, err := f.billSvc.OpenBill(f.ctx, f.periodID, 5)
	require.NoError(t, err)
	_, err = f.billSvc.AddCall(f.ctx, bill.ID, "Water please")
	require.NoError(t, err)

	require.NoError(t, f.dsp.DispatchBill(f.ctx, bill.ID))

	// Only the first printer receives bill calls.
	payloads := f.transport.payloads(f.printers[0].Address)
	require.Len(t, payloads, 1)
	assert.Contains(t, string(payloads[0]), "CALL TABLE 5")
	assert.Contains(t, string(payloads[0]), "Water please")
	assert.Empty(t, f.transport.payloads(f.printers[1].Address))

	var callLogs []billdomain.BillCallPrintLog
	require.NoError(t, f.db.Where("bill_id = ?", bill.ID).Find(&callLogs).Error)
	require.Len(t, callLogs, 1)
	assert.Equal(t, billdomain.PrintLogSucceeded, callLogs[0].Status)
}
