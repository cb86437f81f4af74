package domain

import "github.com/bwmarrin/snowflake"

// PriceRow is one (price group, price) pair for an item or modifier item.
type PriceRow struct {
	PriceGroupID snowflake.ID
	Price        *int64
}

// ResolvePrice returns the price for the given price group, or false when
// no row matches or the matching row's price is null ("unavailable").
// Pure; the caller snapshots the result onto the bill.
func ResolvePrice(priceGroupID snowflake.ID, rows []PriceRow) (int64, bool) {
	for _, row := range rows {
		if row.PriceGroupID != priceGroupID {
			continue
		}
		if row.Price == nil {
			return 0, false
		}
		return *row.Price, true
	}
	return 0, false
}

// ItemPriceRows adapts ItemPrice records to PriceRow.
func ItemPriceRows(prices []ItemPrice) []PriceRow {
	rows := make([]PriceRow, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, PriceRow{PriceGroupID: p.PriceGroupID, Price: p.Price})
	}
	return rows
}

// ModifierItemPriceRows adapts ModifierItemPrice records to PriceRow.
func ModifierItemPriceRows(prices []ModifierItemPrice) []PriceRow {
	rows := make([]PriceRow, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, PriceRow{PriceGroupID: p.PriceGroupID, Price: p.Price})
	}
	return rows
}
