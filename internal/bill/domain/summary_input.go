package domain

import (
	"github.com/tablyhq/tably/internal/bill/summary"
)

// SummaryInput shapes ledger records into the pure calculator's inputs.
func SummaryInput(
	items []BillItem,
	modItems []BillItemModifierItem,
	discounts []BillDiscount,
	payments []BillPayment,
) ([]summary.ItemCharge, []summary.DiscountLine, []summary.Payment) {
	modsByItem := make(map[int64][]summary.ModifierCharge, len(modItems))
	for _, mod := range modItems {
		modsByItem[int64(mod.BillItemID)] = append(modsByItem[int64(mod.BillItemID)], summary.ModifierCharge{
			Price:      mod.ModifierItemPrice,
			Chargeable: mod.Chargeable(),
		})
	}

	charges := make([]summary.ItemCharge, 0, len(items))
	for _, item := range items {
		charges = append(charges, summary.ItemCharge{
			Price:      item.ItemPrice,
			Chargeable: item.Chargeable(),
			Modifiers:  modsByItem[int64(item.ID)],
		})
	}

	lines := make([]summary.DiscountLine, 0, len(discounts))
	for _, d := range discounts {
		lines = append(lines, summary.DiscountLine{
			BillDiscountID: d.ID,
			DiscountID:     d.DiscountID,
			ClosingAmount:  d.ClosingAmount,
		})
	}

	tenders := make([]summary.Payment, 0, len(payments))
	for _, p := range payments {
		tenders = append(tenders, summary.Payment{Amount: p.Amount, IsChange: p.IsChange})
	}

	return charges, lines, tenders
}
