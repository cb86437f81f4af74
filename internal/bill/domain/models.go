// Package domain contains persistence models for the order ledger: bills,
// their items, payments, discounts, and per-printer print logs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillPeriod is a time-bounded batch of bills between two close-period
// operations (shift/day boundary).
type BillPeriod struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OpenedAt  time.Time    `gorm:"not null" json:"opened_at"`
	ClosedAt  *time.Time   `gorm:"" json:"closed_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillPeriod) TableName() string { return "bill_periods" }

// Bill is one open or closed tab. Bills are never deleted.
type Bill struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	BillPeriodID snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_bills_period_ref,priority:1" json:"bill_period_id"`
	RefNumber    int               `gorm:"not null;uniqueIndex:ux_bills_period_ref,priority:2" json:"ref_number"`
	IsClosed     bool              `gorm:"not null;default:false" json:"is_closed"`
	ClosedAt     *time.Time        `gorm:"" json:"closed_at,omitempty"`
	PrepAt       *time.Time        `gorm:"" json:"prep_at,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// BillItem is an immutable snapshot of the catalog item at add-time plus
// mutable status flags. Snapshot fields are write-once so historical
// totals never drift when the catalog changes later.
type BillItem struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID snowflake.ID `gorm:"not null;index" json:"bill_id"`

	// snapshot fields, never recomputed
	ItemID         snowflake.ID `gorm:"not null" json:"item_id"`
	ItemName       string       `gorm:"type:text;not null" json:"item_name"`
	ItemShortName  string       `gorm:"type:text;not null" json:"item_short_name"`
	ItemPrice      int64        `gorm:"not null" json:"item_price"`
	PriceGroupID   snowflake.ID `gorm:"not null" json:"price_group_id"`
	PriceGroupName string       `gorm:"type:text;not null" json:"price_group_name"`
	CategoryID     snowflake.ID `gorm:"not null" json:"category_id"`
	CategoryName   string       `gorm:"type:text;not null" json:"category_name"`

	// status fields
	IsVoided          bool       `gorm:"not null;default:false" json:"is_voided"`
	IsComp            bool       `gorm:"not null;default:false" json:"is_comp"`
	VoidedAt          *time.Time `gorm:"" json:"voided_at,omitempty"`
	ReasonName        string     `gorm:"type:text" json:"reason_name"`
	ReasonDescription string     `gorm:"type:text" json:"reason_description"`
	IsStored          bool       `gorm:"not null;default:false" json:"is_stored"`
	StoredAt          *time.Time `gorm:"" json:"stored_at,omitempty"`
	PrintMessage      string     `gorm:"type:text" json:"print_message"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillItem) TableName() string { return "bill_items" }

// Chargeable reports whether the item contributes to the bill total.
func (i BillItem) Chargeable() bool {
	return !i.IsVoided && !i.IsComp
}

// BillItemModifier snapshots a selected modifier group under a bill item.
type BillItemModifier struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	BillItemID   snowflake.ID `gorm:"not null;index" json:"bill_item_id"`
	ModifierID   snowflake.ID `gorm:"not null" json:"modifier_id"`
	ModifierName string       `gorm:"type:text;not null" json:"modifier_name"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillItemModifier) TableName() string { return "bill_item_modifiers" }

// BillItemModifierItem snapshots one selected modifier item; same
// immutable-snapshot-plus-status pattern as BillItem, one level down.
type BillItemModifierItem struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	BillItemModifierID snowflake.ID `gorm:"not null;index" json:"bill_item_modifier_id"`
	BillItemID         snowflake.ID `gorm:"not null;index" json:"bill_item_id"`

	ModifierItemID        snowflake.ID `gorm:"not null" json:"modifier_item_id"`
	ModifierItemName      string       `gorm:"type:text;not null" json:"modifier_item_name"`
	ModifierItemShortName string       `gorm:"type:text;not null" json:"modifier_item_short_name"`
	ModifierItemPrice     int64        `gorm:"not null" json:"modifier_item_price"`

	IsVoided  bool      `gorm:"not null;default:false" json:"is_voided"`
	IsComp    bool      `gorm:"not null;default:false" json:"is_comp"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillItemModifierItem) TableName() string { return "bill_item_modifier_items" }

// Chargeable reports whether the modifier item contributes to the total.
func (m BillItemModifierItem) Chargeable() bool {
	return !m.IsVoided && !m.IsComp
}

// BillDiscount links a bill to a catalog discount. ClosingAmount stays
// null until the bill closes, then is finalized exactly once so
// historical reports never recompute it.
type BillDiscount struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID        snowflake.ID `gorm:"not null;index" json:"bill_id"`
	DiscountID    snowflake.ID `gorm:"not null" json:"discount_id"`
	DiscountName  string       `gorm:"type:text;not null" json:"discount_name"`
	ClosingAmount *int64       `gorm:"" json:"closing_amount,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillDiscount) TableName() string { return "bill_discounts" }

// PaymentType is a tender kind (cash, card, voucher).
type PaymentType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentType) TableName() string { return "payment_types" }

// BillPayment is append-only. IsChange marks synthesized change returned
// to the guest; a bill with a change payment is closed.
type BillPayment struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID          snowflake.ID `gorm:"not null;index" json:"bill_id"`
	PaymentTypeID   snowflake.ID `gorm:"not null" json:"payment_type_id"`
	PaymentTypeName string       `gorm:"type:text;not null" json:"payment_type_name"`
	Amount          int64        `gorm:"not null" json:"amount"`
	IsChange        bool         `gorm:"not null;default:false" json:"is_change"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillPayment) TableName() string { return "bill_payments" }

// PrintLogType distinguishes standard kitchen lines from void notices.
type PrintLogType string

const (
	PrintLogStd  PrintLogType = "std"
	PrintLogVoid PrintLogType = "void"
)

// BillItemPrintLog is one delivery record per (bill item, printer). Logs
// are never re-created for the same pair; only their status advances.
type BillItemPrintLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	BillID     snowflake.ID      `gorm:"not null;index" json:"bill_id"`
	BillItemID snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_bill_item_print_logs,priority:1" json:"bill_item_id"`
	PrinterID  snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_bill_item_print_logs,priority:2" json:"printer_id"`
	Type       PrintLogType      `gorm:"type:text;not null;default:'std';uniqueIndex:ux_bill_item_print_logs,priority:3" json:"type"`
	Status     PrintLogStatus    `gorm:"type:text;not null;default:'pending'" json:"status"`
	Detail     string            `gorm:"type:text" json:"detail"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillItemPrintLog) TableName() string { return "bill_item_print_logs" }

// BillCallLog records a waiter-needed call raised at the table.
type BillCallLog struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID    snowflake.ID `gorm:"not null;index" json:"bill_id"`
	Message   string       `gorm:"type:text" json:"message"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillCallLog) TableName() string { return "bill_call_logs" }

// BillCallPrintLog is the per-printer delivery record for a bill call.
type BillCallPrintLog struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	BillID        snowflake.ID   `gorm:"not null;index" json:"bill_id"`
	BillCallLogID snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_bill_call_print_logs,priority:1" json:"bill_call_log_id"`
	PrinterID     snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_bill_call_print_logs,priority:2" json:"printer_id"`
	Status        PrintLogStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Detail        string         `gorm:"type:text" json:"detail"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillCallPrintLog) TableName() string { return "bill_call_print_logs" }
