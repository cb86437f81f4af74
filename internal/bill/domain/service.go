package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/internal/bill/summary"
)

var (
	ErrBillNotFound        = errors.New("bill_not_found")
	ErrBillClosed          = errors.New("bill_closed")
	ErrBillItemNotFound    = errors.New("bill_item_not_found")
	ErrPeriodClosed        = errors.New("bill_period_closed")
	ErrPeriodNotFound      = errors.New("bill_period_not_found")
	ErrMaxOpenBills        = errors.New("max_open_bills_reached")
	ErrRefNumberTaken      = errors.New("ref_number_taken")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrVoidReasonRequired  = errors.New("void_reason_required")
	ErrCompReasonRequired  = errors.New("comp_reason_required")
	ErrItemAlreadyVoided   = errors.New("bill_item_already_voided")
	ErrItemAlreadyComp     = errors.New("bill_item_already_comp")
	ErrPaymentTypeNotFound = errors.New("payment_type_not_found")
	ErrIllegalTransition   = errors.New("illegal_print_log_transition")
	ErrPrintLogNotFound    = errors.New("print_log_not_found")
)

// ModifierSelection is one selected modifier group with its chosen items.
// Callers validate bounds through catalog.ValidateModifierSelection before
// invoking AddItems.
type ModifierSelection struct {
	ModifierID    snowflake.ID   `json:"modifier_id"`
	ModifierItems []snowflake.ID `json:"modifier_items"`
}

// AddItemsRequest adds quantity snapshots of one catalog item to a bill.
type AddItemsRequest struct {
	ItemID       snowflake.ID        `json:"item_id"`
	PriceGroupID snowflake.ID        `json:"price_group_id"`
	Quantity     int                 `json:"quantity"`
	PrintMessage string              `json:"print_message"`
	Modifiers    []ModifierSelection `json:"modifiers"`
}

// AddPaymentRequest appends one tender record.
type AddPaymentRequest struct {
	PaymentTypeID snowflake.ID `json:"payment_type_id"`
	Amount        int64        `json:"amount"`
	IsChange      bool         `json:"is_change"`
}

// AddPaymentResult reports whether the payment closed the bill.
type AddPaymentResult struct {
	Payment    BillPayment     `json:"payment"`
	Summary    summary.Summary `json:"summary"`
	BillClosed bool            `json:"bill_closed"`
	// ChangeAmount is the synthesized change payment when the bill
	// auto-closed with a negative balance.
	ChangeAmount int64 `json:"change_amount"`
}

// PrintLogUpdate is one batched status write for a dispatch outcome.
type PrintLogUpdate struct {
	LogID  snowflake.ID   `json:"log_id"`
	Status PrintLogStatus `json:"status"`
	Detail string         `json:"detail"`
}

// BillRow is a bill with its derived print state for list rendering.
type BillRow struct {
	Bill       Bill       `json:"bill"`
	PrintState PrintState `json:"print_state"`
	Badge      PrintBadge `json:"badge"`
}

// BillDetail is the full aggregate read model.
type BillDetail struct {
	Bill      Bill                   `json:"bill"`
	Items     []BillItem             `json:"items"`
	Modifiers []BillItemModifier     `json:"modifiers"`
	ModItems  []BillItemModifierItem `json:"modifier_items"`
	Discounts []BillDiscount         `json:"discounts"`
	Payments  []BillPayment          `json:"payments"`
	PrintLogs []BillItemPrintLog     `json:"print_logs"`
	Summary   summary.Summary        `json:"summary"`
}

// Service is the bill aggregate: the only legal mutation surface for bill
// records. Every mutating operation is applied as one atomic batch, and
// operations against one bill are serialized.
type Service interface {
	OpenBill(ctx context.Context, periodID snowflake.ID, refNumber int) (Bill, error)
	GetBill(ctx context.Context, billID snowflake.ID) (BillDetail, error)
	ListBills(ctx context.Context, periodID snowflake.ID) ([]BillRow, error)

	AddItems(ctx context.Context, billID snowflake.ID, req AddItemsRequest) ([]BillItem, error)
	AddPayment(ctx context.Context, billID snowflake.ID, req AddPaymentRequest) (AddPaymentResult, error)
	AddDiscount(ctx context.Context, billID, discountID snowflake.ID) (BillDiscount, error)
	AddCall(ctx context.Context, billID snowflake.ID, message string) (BillCallLog, error)

	// StoreBill marks all not-yet-stored, non-voided items stored. Kitchen
	// acceptance is recorded independent of print outcome.
	StoreBill(ctx context.Context, billID snowflake.ID) error

	VoidItem(ctx context.Context, billID, billItemID snowflake.ID, reasonID *snowflake.ID) error
	CompItem(ctx context.Context, billID, billItemID snowflake.ID, reasonID snowflake.ID) error

	Close(ctx context.Context, billID snowflake.ID) error

	Summary(ctx context.Context, billID snowflake.ID) (summary.Summary, error)
	PrintState(ctx context.Context, billID snowflake.ID) (PrintState, error)

	// MarkLogsProcessing atomically advances every retryable item/call log
	// on the bill to processing and returns what the dispatch cycle owns.
	MarkLogsProcessing(ctx context.Context, billID snowflake.ID) ([]BillItemPrintLog, []BillCallPrintLog, error)
	ProcessPrintLogs(ctx context.Context, billID snowflake.ID, updates []PrintLogUpdate) error
	ProcessCallLogs(ctx context.Context, billID snowflake.ID, updates []PrintLogUpdate) error
}
