package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/config"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"github.com/tablyhq/tably/pkg/printer"
	"github.com/tablyhq/tably/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDispatchLocked reports that another terminal is already running a
// dispatch cycle for the bill.
var ErrDispatchLocked = errors.New("dispatch_locked")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	BillSvc    billdomain.Service
	PrinterSvc printerdomain.Service
	CatalogSvc catalogdomain.Service
	Transport  printer.Transport
	Terminal   *config.TerminalConfigHolder
	Locker     *Locker            `optional:"true"`
	Metrics    *telemetry.Metrics `optional:"true"`
}

// Dispatcher runs one dispatch cycle per invocation: claim the bill's
// retryable logs, compile, transmit per printer, write outcomes back.
type Dispatcher struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	billSvc    billdomain.Service
	printerSvc printerdomain.Service
	catalogSvc catalogdomain.Service
	transport  printer.Transport
	terminal   *config.TerminalConfigHolder
	locker     *Locker
	metrics    *telemetry.Metrics
}

func NewDispatcher(p Params) *Dispatcher {
	return &Dispatcher{
		db:         p.DB,
		log:        p.Log.Named("dispatch"),
		clock:      p.Clock,
		billSvc:    p.BillSvc,
		printerSvc: p.PrinterSvc,
		catalogSvc: p.CatalogSvc,
		transport:  p.Transport,
		terminal:   p.Terminal,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}
}

// DispatchBill runs one dispatch cycle for the bill. The processing claim
// commits before any transmission begins; printers are transmitted
// independently and one printer's failure never blocks another's job.
func (d *Dispatcher) DispatchBill(ctx context.Context, billID snowflake.ID) error {
	started := d.clock.Now()

	token, acquired, err := d.locker.TryLock(ctx, billID)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrDispatchLocked
	}
	defer func() {
		if err := d.locker.Release(ctx, billID, token); err != nil {
			d.log.Warn("dispatch lock release failed",
				zap.Int64("bill_id", int64(billID)), zap.Error(err))
		}
	}()

	itemLogs, callLogs, err := d.billSvc.MarkLogsProcessing(ctx, billID)
	if err != nil {
		d.metrics.ObserveDispatchCycle("error", d.clock.Now().Sub(started))
		return err
	}
	if len(itemLogs) == 0 && len(callLogs) == 0 {
		d.metrics.ObserveDispatchCycle("empty", d.clock.Now().Sub(started))
		return nil
	}

	detail, err := d.billSvc.GetBill(ctx, billID)
	if err != nil {
		return err
	}

	now := d.clock.Now()
	width := d.terminal.Current().PaperWidth

	if len(itemLogs) > 0 {
		jobs, err := d.compileItemJobs(ctx, detail, itemLogs)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			d.dispatchJob(ctx, billID, job, width, now)
		}
	}

	if len(callLogs) > 0 {
		jobs, err := d.compileCallJobs(ctx, detail.Bill.RefNumber, billID, callLogs)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			d.dispatchCallJob(ctx, billID, job, width, now)
		}
	}

	d.metrics.ObserveDispatchCycle("ok", d.clock.Now().Sub(started))
	return nil
}

func (d *Dispatcher) compileItemJobs(ctx context.Context, detail billdomain.BillDetail, logs []billdomain.BillItemPrintLog) ([]Job, error) {
	categories, err := d.catalogSvc.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	printCategories, err := d.catalogSvc.ListPrintCategories(ctx)
	if err != nil {
		return nil, err
	}
	return Compile(Input{
		RefNumber:       detail.Bill.RefNumber,
		Logs:            logs,
		Items:           detail.Items,
		ModifierItems:   detail.ModItems,
		Categories:      categories,
		PrintCategories: printCategories,
	}), nil
}

func (d *Dispatcher) compileCallJobs(ctx context.Context, refNumber int, billID snowflake.ID, logs []billdomain.BillCallPrintLog) ([]CallJob, error) {
	var calls []billdomain.BillCallLog
	if err := d.db.WithContext(ctx).Where("bill_id = ?", billID).Find(&calls).Error; err != nil {
		return nil, err
	}
	return CompileCalls(refNumber, logs, calls), nil
}

// dispatchJob transmits one compiled job. The outcome write runs in a
// defer so a transport failure or panic still lands the logs in errored.
func (d *Dispatcher) dispatchJob(ctx context.Context, billID snowflake.ID, job Job, width int, now time.Time) {
	status := billdomain.PrintLogSucceeded
	detail := ""
	defer func() {
		if r := recover(); r != nil {
			status = billdomain.PrintLogErrored
			detail = fmt.Sprintf("printer panic: %v", r)
		}
		d.settle(ctx, billID, job.PriceGroupID, job.PrinterID, job.LogIDs(), status, detail, false)
	}()

	if err := d.transmit(ctx, job.PrinterID, RenderJob(job, width, now)); err != nil {
		status = billdomain.PrintLogErrored
		detail = err.Error()
	}
}

func (d *Dispatcher) dispatchCallJob(ctx context.Context, billID snowflake.ID, job CallJob, width int, now time.Time) {
	status := billdomain.PrintLogSucceeded
	detail := ""
	defer func() {
		if r := recover(); r != nil {
			status = billdomain.PrintLogErrored
			detail = fmt.Sprintf("printer panic: %v", r)
		}
		d.settle(ctx, billID, 0, job.PrinterID, job.LogIDs(), status, detail, true)
	}()

	if err := d.transmit(ctx, job.PrinterID, RenderCallJob(job, width, now)); err != nil {
		status = billdomain.PrintLogErrored
		detail = err.Error()
	}
}

func (d *Dispatcher) transmit(ctx context.Context, printerID snowflake.ID, payload []byte) error {
	target, err := d.printerSvc.GetPrinter(ctx, printerID)
	if err != nil {
		return err
	}
	conn, err := d.transport.Open(target.Descriptor())
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Transmit(payload)
}

func (d *Dispatcher) settle(
	ctx context.Context,
	billID, priceGroupID, printerID snowflake.ID,
	logIDs []snowflake.ID,
	status billdomain.PrintLogStatus,
	detail string,
	isCall bool,
) {
	updates := make([]billdomain.PrintLogUpdate, 0, len(logIDs))
	for _, id := range logIDs {
		updates = append(updates, billdomain.PrintLogUpdate{LogID: id, Status: status, Detail: detail})
	}

	var err error
	if isCall {
		err = d.billSvc.ProcessCallLogs(ctx, billID, updates)
	} else {
		err = d.billSvc.ProcessPrintLogs(ctx, billID, updates)
	}
	if err != nil {
		d.log.Error("dispatch outcome write failed",
			zap.Int64("bill_id", int64(billID)),
			zap.Int64("printer_id", int64(printerID)),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}

	d.metrics.ObservePrintOutcome(printerID.String(), string(status))
	if status == billdomain.PrintLogErrored {
		d.log.Warn("print job errored",
			zap.Int64("bill_id", int64(billID)),
			zap.Int64("price_group_id", int64(priceGroupID)),
			zap.Int64("printer_id", int64(printerID)),
			zap.String("detail", detail))
	}
}
