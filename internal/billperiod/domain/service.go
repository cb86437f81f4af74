package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
)

var (
	ErrPeriodAlreadyOpen = errors.New("bill_period_already_open")
	ErrNoOpenPeriod      = errors.New("no_open_bill_period")
	ErrOpenBillsRemain   = errors.New("open_bills_remain")
)

// Report is the computed aggregate over every bill in one period. Closed
// bills contribute their finalized closing amounts; open bills are
// summarized live.
type Report struct {
	Period          billdomain.BillPeriod `json:"period"`
	BillCount       int                   `json:"bill_count"`
	ClosedBillCount int                   `json:"closed_bill_count"`
	Gross           int64                 `json:"gross"`
	TotalDiscounts  int64                 `json:"total_discounts"`
	TotalPayments   int64                 `json:"total_payments"`
	PaymentsByType  map[string]int64      `json:"payments_by_type"`
	VoidedItemCount int                   `json:"voided_item_count"`
	CompedItemCount int                   `json:"comped_item_count"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// Service manages period lifecycle and report aggregation.
type Service interface {
	// OpenPeriod starts a new period. Only one period may be open.
	OpenPeriod(ctx context.Context) (billdomain.BillPeriod, error)
	// ClosePeriod ends the period. Every bill in it must be closed first.
	ClosePeriod(ctx context.Context, periodID snowflake.ID) error
	CurrentPeriod(ctx context.Context) (billdomain.BillPeriod, error)
	GetPeriod(ctx context.Context, periodID snowflake.ID) (billdomain.BillPeriod, error)
	ListPeriods(ctx context.Context) ([]billdomain.BillPeriod, error)

	PeriodReport(ctx context.Context, periodID snowflake.ID) (Report, error)
	// RefreshRollup recomputes and persists the period's rollup row.
	RefreshRollup(ctx context.Context, periodID snowflake.ID) (PeriodReportRollup, error)
	GetRollup(ctx context.Context, periodID snowflake.ID) (PeriodReportRollup, error)
}
