package dispatch

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPriceGroup = snowflake.ID(100)
	testPrinterA   = snowflake.ID(201)
	testPrinterB   = snowflake.ID(202)
)

func makeItem(id snowflake.ID, itemID snowflake.ID, categoryID snowflake.ID, message string) billdomain.BillItem {
	return billdomain.BillItem{
		ID:            id,
		ItemID:        itemID,
		ItemShortName: "Burger",
		PriceGroupID:  testPriceGroup,
		CategoryID:    categoryID,
		CategoryName:  "Mains",
		PrintMessage:  message,
	}
}

func makeLog(id, billItemID, printerID snowflake.ID, logType billdomain.PrintLogType) billdomain.BillItemPrintLog {
	return billdomain.BillItemPrintLog{
		ID:         id,
		BillItemID: billItemID,
		PrinterID:  printerID,
		Type:       logType,
		Status:     billdomain.PrintLogProcessing,
	}
}

func TestCompile_QuantityCollapse(t *testing.T) {
	itemID := snowflake.ID(1)
	categoryID := snowflake.ID(2)

	var items []billdomain.BillItem
	var logs []billdomain.BillItemPrintLog
	for i := 0; i < 5; i++ {
		billItemID := snowflake.ID(1000 + i)
		items = append(items, makeItem(billItemID, itemID, categoryID, ""))
		logs = append(logs, makeLog(snowflake.ID(2000+i), billItemID, testPrinterA, billdomain.PrintLogStd))
	}

	jobs := Compile(Input{RefNumber: 7, Logs: logs, Items: items})
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Sections, 1)
	require.Len(t, jobs[0].Sections[0].Lines, 1)

	line := jobs[0].Sections[0].Lines[0]
	assert.Equal(t, 5, line.Quantity)
	assert.Len(t, line.LogIDs, 5)
	assert.False(t, line.IsVoid)
}

func TestCompile_DifferentModifiersDoNotCollapse(t *testing.T) {
	itemID := snowflake.ID(1)
	categoryID := snowflake.ID(2)

	itemA := makeItem(1001, itemID, categoryID, "")
	itemB := makeItem(1002, itemID, categoryID, "")
	mods := []billdomain.BillItemModifierItem{
		{ID: 3001, BillItemID: itemB.ID, ModifierItemID: 55, ModifierItemShortName: "Extra cheese"},
	}
	logs := []billdomain.BillItemPrintLog{
		makeLog(2001, itemA.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2002, itemB.ID, testPrinterA, billdomain.PrintLogStd),
	}

	jobs := Compile(Input{Logs: logs, Items: []billdomain.BillItem{itemA, itemB}, ModifierItems: mods})
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Sections, 1)
	assert.Len(t, jobs[0].Sections[0].Lines, 2)
}

func TestCompile_PrintMessageSplitsLines(t *testing.T) {
	itemID := snowflake.ID(1)
	categoryID := snowflake.ID(2)

	itemA := makeItem(1001, itemID, categoryID, "")
	itemB := makeItem(1002, itemID, categoryID, "no onions")
	logs := []billdomain.BillItemPrintLog{
		makeLog(2001, itemA.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2002, itemB.ID, testPrinterA, billdomain.PrintLogStd),
	}

	jobs := Compile(Input{Logs: logs, Items: []billdomain.BillItem{itemA, itemB}})
	require.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Sections[0].Lines, 2)
}

func TestCompile_PerPrinterJobs(t *testing.T) {
	itemID := snowflake.ID(1)
	categoryID := snowflake.ID(2)
	item := makeItem(1001, itemID, categoryID, "")

	logs := []billdomain.BillItemPrintLog{
		makeLog(2001, item.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2002, item.ID, testPrinterB, billdomain.PrintLogStd),
	}

	jobs := Compile(Input{Logs: logs, Items: []billdomain.BillItem{item}})
	require.Len(t, jobs, 2)
	assert.Equal(t, testPrinterA, jobs[0].PrinterID)
	assert.Equal(t, testPrinterB, jobs[1].PrinterID)
}

func TestCompile_VoidLinesSeparateFromStd(t *testing.T) {
	itemID := snowflake.ID(1)
	categoryID := snowflake.ID(2)
	itemA := makeItem(1001, itemID, categoryID, "")
	itemB := makeItem(1002, itemID, categoryID, "")

	logs := []billdomain.BillItemPrintLog{
		makeLog(2001, itemA.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2002, itemB.ID, testPrinterA, billdomain.PrintLogVoid),
	}

	jobs := Compile(Input{Logs: logs, Items: []billdomain.BillItem{itemA, itemB}})
	require.Len(t, jobs, 1)
	lines := jobs[0].Sections[0].Lines
	require.Len(t, lines, 2)
	assert.False(t, lines[0].IsVoid)
	assert.True(t, lines[1].IsVoid)
}

func TestCompile_SectionOrderingByPrintCategory(t *testing.T) {
	drinksCat := snowflake.ID(10)
	mainsCat := snowflake.ID(11)
	dessertCat := snowflake.ID(12)
	pcDrinks := snowflake.ID(20)
	pcMains := snowflake.ID(21)

	categories := []catalogdomain.Category{
		{ID: drinksCat, ShortName: "Drinks", PrintCategoryID: &pcDrinks},
		{ID: mainsCat, ShortName: "Mains", PrintCategoryID: &pcMains},
		{ID: dessertCat, ShortName: "Dessert"},
	}
	printCategories := []catalogdomain.PrintCategory{
		{ID: pcDrinks, ShortName: "BAR", DisplayOrder: 1},
		{ID: pcMains, ShortName: "KITCHEN", DisplayOrder: 2},
	}

	itemDessert := makeItem(1001, 1, dessertCat, "")
	itemMains := makeItem(1002, 2, mainsCat, "")
	itemDrinks := makeItem(1003, 3, drinksCat, "")

	logs := []billdomain.BillItemPrintLog{
		makeLog(2001, itemDessert.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2002, itemMains.ID, testPrinterA, billdomain.PrintLogStd),
		makeLog(2003, itemDrinks.ID, testPrinterA, billdomain.PrintLogStd),
	}

	jobs := Compile(Input{
		Logs:            logs,
		Items:           []billdomain.BillItem{itemDessert, itemMains, itemDrinks},
		Categories:      categories,
		PrintCategories: printCategories,
	})
	require.Len(t, jobs, 1)
	require.Len(t, jobs[0].Sections, 3)

	// Explicit display orders first, then the category's own short name.
	assert.Equal(t, "BAR", jobs[0].Sections[0].Header)
	assert.Equal(t, "KITCHEN", jobs[0].Sections[1].Header)
	assert.Equal(t, "Dessert", jobs[0].Sections[2].Header)
}

func TestCompile_OtherHeaderFallback(t *testing.T) {
	item := makeItem(1001, 1, snowflake.ID(999), "")
	item.CategoryName = ""
	logs := []billdomain.BillItemPrintLog{makeLog(2001, item.ID, testPrinterA, billdomain.PrintLogStd)}

	jobs := Compile(Input{Logs: logs, Items: []billdomain.BillItem{item}})
	require.Len(t, jobs, 1)
	assert.Equal(t, "OTHER", jobs[0].Sections[0].Header)
}

func TestCompile_Deterministic(t *testing.T) {
	categoryID := snowflake.ID(2)
	var items []billdomain.BillItem
	var logs []billdomain.BillItemPrintLog
	for i := 0; i < 10; i++ {
		item := makeItem(snowflake.ID(1000+i), snowflake.ID(i%3), categoryID, "")
		items = append(items, item)
		printer := testPrinterA
		if i%2 == 0 {
			printer = testPrinterB
		}
		logs = append(logs, makeLog(snowflake.ID(2000+i), item.ID, printer, billdomain.PrintLogStd))
	}

	input := Input{RefNumber: 3, Logs: logs, Items: items}
	first := Compile(input)
	second := Compile(input)
	assert.Equal(t, first, second)
}

func TestCompileCalls_OneLinePerCall(t *testing.T) {
	calls := []billdomain.BillCallLog{
		{ID: 1, Message: "More water"},
		{ID: 2, Message: ""},
	}
	logs := []billdomain.BillCallPrintLog{
		{ID: 11, BillCallLogID: 1, PrinterID: testPrinterA},
		{ID: 12, BillCallLogID: 2, PrinterID: testPrinterA},
		{ID: 13, BillCallLogID: 1, PrinterID: testPrinterB},
	}

	jobs := CompileCalls(4, logs, calls)
	require.Len(t, jobs, 2)
	assert.Len(t, jobs[0].Lines, 2)
	assert.Len(t, jobs[1].Lines, 1)
	assert.Equal(t, "More water", jobs[0].Lines[0].Name)
	assert.Equal(t, "Bill call", jobs[0].Lines[1].Name)
}
