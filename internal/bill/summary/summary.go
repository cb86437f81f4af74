// Package summary computes bill totals. It is a pure function of its
// inputs so payment-screen math, bill-row rendering, and receipt printing
// all agree exactly, and so it is safely recomputable on every render.
package summary

import (
	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
)

// ModifierCharge is one modifier item's contribution under an item.
type ModifierCharge struct {
	Price      int64
	Chargeable bool
}

// ItemCharge is one bill item's contribution.
type ItemCharge struct {
	Price      int64
	Chargeable bool
	Modifiers  []ModifierCharge
}

// DiscountLine is one bill discount. When ClosingAmount is set the bill
// has closed and the finalized amount is authoritative; the discount is
// never recomputed for historical reads.
type DiscountLine struct {
	BillDiscountID snowflake.ID
	DiscountID     snowflake.ID
	ClosingAmount  *int64
}

// Payment is one tender record.
type Payment struct {
	Amount   int64
	IsChange bool
}

// Summary is the agreed read model for all billing math.
type Summary struct {
	Total         int64 `json:"total"`
	TotalDiscount int64 `json:"total_discount"`
	TotalPayable  int64 `json:"total_payable"`
	TotalPayments int64 `json:"total_payments"`
	Balance       int64 `json:"balance"`
	// DiscountBreakdown keys calculated amounts by BillDiscount id.
	DiscountBreakdown map[snowflake.ID]int64 `json:"discount_breakdown"`
}

// Calculate produces the bill summary. Percentage discounts each apply to
// the pre-discount total (order-independent, not compounded); fixed
// discounts apply their flat amount capped at the remaining total. The
// combined discount is clamped at the total: two discounts may not drive
// the payable below zero.
func Calculate(
	items []ItemCharge,
	discounts []DiscountLine,
	payments []Payment,
	catalog map[snowflake.ID]catalogdomain.Discount,
) Summary {
	var total int64
	for _, item := range items {
		if !item.Chargeable {
			continue
		}
		total += item.Price
		for _, mod := range item.Modifiers {
			if !mod.Chargeable {
				continue
			}
			total += mod.Price
		}
	}

	breakdown := make(map[snowflake.ID]int64, len(discounts))
	var totalDiscount int64
	for _, line := range discounts {
		var calculated int64
		switch {
		case line.ClosingAmount != nil:
			calculated = *line.ClosingAmount
		default:
			def, ok := catalog[line.DiscountID]
			if !ok {
				// Catalog entry deleted before finalize: degrade to zero.
				calculated = 0
				break
			}
			switch def.Kind {
			case catalogdomain.DiscountPercentage:
				calculated = total * def.Value / 100
			case catalogdomain.DiscountAmount:
				remaining := total - totalDiscount
				if remaining < 0 {
					remaining = 0
				}
				calculated = def.Value
				if calculated > remaining {
					calculated = remaining
				}
			}
		}
		breakdown[line.BillDiscountID] = calculated
		totalDiscount += calculated
	}
	if totalDiscount > total {
		totalDiscount = total
	}

	totalPayable := total - totalDiscount
	if totalPayable < 0 {
		totalPayable = 0
	}

	var totalPayments int64
	for _, payment := range payments {
		if payment.IsChange {
			continue
		}
		totalPayments += payment.Amount
	}

	return Summary{
		Total:             total,
		TotalDiscount:     totalDiscount,
		TotalPayable:      totalPayable,
		TotalPayments:     totalPayments,
		Balance:           totalPayable - totalPayments,
		DiscountBreakdown: breakdown,
	}
}
