// Package domain defines billing period reporting models. The period
// record itself lives with the bill models it batches.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PeriodReportRollup is the persisted nightly aggregate for one period.
// Refreshing it is idempotent, one row per period.
type PeriodReportRollup struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	BillPeriodID snowflake.ID `gorm:"not null;uniqueIndex" json:"bill_period_id"`

	BillCount       int   `gorm:"not null" json:"bill_count"`
	ClosedBillCount int   `gorm:"not null" json:"closed_bill_count"`
	Gross           int64 `gorm:"not null" json:"gross"`
	TotalDiscounts  int64 `gorm:"not null" json:"total_discounts"`
	TotalPayments   int64 `gorm:"not null" json:"total_payments"`
	VoidedItemCount int   `gorm:"not null" json:"voided_item_count"`
	CompedItemCount int   `gorm:"not null" json:"comped_item_count"`

	// PaymentsByType maps payment type name to collected amount.
	PaymentsByType datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payments_by_type"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
}

// TableName sets the database table name.
func (PeriodReportRollup) TableName() string { return "period_report_rollups" }
