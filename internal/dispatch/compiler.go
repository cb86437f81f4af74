// Package dispatch compiles outstanding print logs into per-printer jobs
// and transmits them. Compilation is pure so a retried job renders
// identically to the original.
package dispatch

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
)

// Line is one quantity-collapsed printable line.
type Line struct {
	Quantity      int
	Name          string
	ModifierNames []string
	PrintMessage  string
	IsVoid        bool
	// LogIDs are the print logs this line settles; their outcome is
	// written back per transmitted job.
	LogIDs []snowflake.ID
}

// Section groups lines under one kitchen header.
type Section struct {
	Header string
	Lines  []Line
}

// Job is the compiled output for one (price group, printer) pair.
type Job struct {
	PriceGroupID   snowflake.ID
	PriceGroupName string
	PrinterID      snowflake.ID
	RefNumber      int
	Sections       []Section
}

// LogIDs returns every print log the job settles.
func (j Job) LogIDs() []snowflake.ID {
	var ids []snowflake.ID
	for _, section := range j.Sections {
		for _, line := range section.Lines {
			ids = append(ids, line.LogIDs...)
		}
	}
	return ids
}

// CallJob is the compiled output for one printer's bill-call logs. Calls
// carry no quantity or category logic, one line per call log.
type CallJob struct {
	PrinterID snowflake.ID
	RefNumber int
	Lines     []Line
}

// LogIDs returns every call print log the job settles.
func (j CallJob) LogIDs() []snowflake.ID {
	var ids []snowflake.ID
	for _, line := range j.Lines {
		ids = append(ids, line.LogIDs...)
	}
	return ids
}

// Input is everything Compile joins: the claimed logs plus the records
// they reference.
type Input struct {
	RefNumber       int
	Logs            []billdomain.BillItemPrintLog
	Items           []billdomain.BillItem
	ModifierItems   []billdomain.BillItemModifierItem
	Categories      []catalogdomain.Category
	PrintCategories []catalogdomain.PrintCategory
}

// lineKey decides which logs collapse into one quantified line. Two logs
// collapse iff they share item, modifier-item set, print message and
// void-ness.
type lineKey struct {
	itemID       snowflake.ID
	modifierSet  string
	printMessage string
	isVoid       bool
}

type jobKey struct {
	priceGroupID snowflake.ID
	printerID    snowflake.ID
}

// sectionKey orders and labels one header group. Categories without a
// print category sort after ordered ones, by name.
type sectionKey struct {
	order  int
	header string
}

// Compile turns the input logs into one job per (price group, printer)
// pair. It is deterministic and side-effect-free.
func Compile(input Input) []Job {
	itemsByID := make(map[snowflake.ID]billdomain.BillItem, len(input.Items))
	for _, item := range input.Items {
		itemsByID[item.ID] = item
	}
	modsByItem := make(map[snowflake.ID][]billdomain.BillItemModifierItem)
	for _, mod := range input.ModifierItems {
		modsByItem[mod.BillItemID] = append(modsByItem[mod.BillItemID], mod)
	}
	categoriesByID := make(map[snowflake.ID]catalogdomain.Category, len(input.Categories))
	for _, category := range input.Categories {
		categoriesByID[category.ID] = category
	}
	printCategoriesByID := make(map[snowflake.ID]catalogdomain.PrintCategory, len(input.PrintCategories))
	for _, category := range input.PrintCategories {
		printCategoriesByID[category.ID] = category
	}

	type collapsed struct {
		key     lineKey
		section sectionKey
		line    Line
	}
	grouped := make(map[jobKey]map[lineKey]*collapsed)

	for _, log := range input.Logs {
		item, ok := itemsByID[log.BillItemID]
		if !ok {
			continue
		}

		modifierIDs, modifierNames := modifierSnapshot(modsByItem[item.ID])
		key := lineKey{
			itemID:       item.ItemID,
			modifierSet:  modifierIDs,
			printMessage: item.PrintMessage,
			isVoid:       log.Type == billdomain.PrintLogVoid,
		}
		jk := jobKey{priceGroupID: item.PriceGroupID, printerID: log.PrinterID}

		lines := grouped[jk]
		if lines == nil {
			lines = make(map[lineKey]*collapsed)
			grouped[jk] = lines
		}
		if existing := lines[key]; existing != nil {
			existing.line.Quantity++
			existing.line.LogIDs = append(existing.line.LogIDs, log.ID)
			continue
		}
		lines[key] = &collapsed{
			key:     key,
			section: resolveSection(item, categoriesByID, printCategoriesByID),
			line: Line{
				Quantity:      1,
				Name:          item.ItemShortName,
				ModifierNames: modifierNames,
				PrintMessage:  item.PrintMessage,
				IsVoid:        key.isVoid,
				LogIDs:        []snowflake.ID{log.ID},
			},
		}
	}

	jobs := make([]Job, 0, len(grouped))
	for jk, lines := range grouped {
		job := Job{
			PriceGroupID: jk.priceGroupID,
			PrinterID:    jk.printerID,
			RefNumber:    input.RefNumber,
		}
		for _, item := range input.Items {
			if item.PriceGroupID == jk.priceGroupID {
				job.PriceGroupName = item.PriceGroupName
				break
			}
		}

		bySection := make(map[sectionKey][]Line)
		for _, entry := range lines {
			sort.Slice(entry.line.LogIDs, func(i, j int) bool {
				return entry.line.LogIDs[i] < entry.line.LogIDs[j]
			})
			bySection[entry.section] = append(bySection[entry.section], entry.line)
		}

		sectionKeys := make([]sectionKey, 0, len(bySection))
		for sk := range bySection {
			sectionKeys = append(sectionKeys, sk)
		}
		sort.Slice(sectionKeys, func(i, j int) bool {
			if sectionKeys[i].order != sectionKeys[j].order {
				return sectionKeys[i].order < sectionKeys[j].order
			}
			return sectionKeys[i].header < sectionKeys[j].header
		})

		for _, sk := range sectionKeys {
			sectionLines := bySection[sk]
			sort.Slice(sectionLines, func(i, j int) bool {
				return lineLess(sectionLines[i], sectionLines[j])
			})
			job.Sections = append(job.Sections, Section{Header: sk.header, Lines: sectionLines})
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].PriceGroupID != jobs[j].PriceGroupID {
			return jobs[i].PriceGroupID < jobs[j].PriceGroupID
		}
		return jobs[i].PrinterID < jobs[j].PrinterID
	})
	return jobs
}

// CompileCalls groups bill-call logs by printer, one line per call.
func CompileCalls(refNumber int, logs []billdomain.BillCallPrintLog, calls []billdomain.BillCallLog) []CallJob {
	callsByID := make(map[snowflake.ID]billdomain.BillCallLog, len(calls))
	for _, call := range calls {
		callsByID[call.ID] = call
	}

	byPrinter := make(map[snowflake.ID][]Line)
	for _, log := range logs {
		call, ok := callsByID[log.BillCallLogID]
		if !ok {
			continue
		}
		message := call.Message
		if message == "" {
			message = "Bill call"
		}
		byPrinter[log.PrinterID] = append(byPrinter[log.PrinterID], Line{
			Quantity: 1,
			Name:     message,
			LogIDs:   []snowflake.ID{log.ID},
		})
	}

	jobs := make([]CallJob, 0, len(byPrinter))
	for printerID, lines := range byPrinter {
		sort.Slice(lines, func(i, j int) bool { return lines[i].LogIDs[0] < lines[j].LogIDs[0] })
		jobs = append(jobs, CallJob{PrinterID: printerID, RefNumber: refNumber, Lines: lines})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].PrinterID < jobs[j].PrinterID })
	return jobs
}

func modifierSnapshot(mods []billdomain.BillItemModifierItem) (string, []string) {
	if len(mods) == 0 {
		return "", nil
	}
	ids := make([]string, 0, len(mods))
	names := make([]string, 0, len(mods))
	sorted := make([]billdomain.BillItemModifierItem, len(mods))
	copy(sorted, mods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ModifierItemID < sorted[j].ModifierItemID })
	for _, mod := range sorted {
		ids = append(ids, fmt.Sprintf("%d", mod.ModifierItemID))
		names = append(names, mod.ModifierItemShortName)
	}
	return strings.Join(ids, ","), names
}

func resolveSection(
	item billdomain.BillItem,
	categories map[snowflake.ID]catalogdomain.Category,
	printCategories map[snowflake.ID]catalogdomain.PrintCategory,
) sectionKey {
	category, ok := categories[item.CategoryID]
	if ok && category.PrintCategoryID != nil {
		if pc, found := printCategories[*category.PrintCategoryID]; found {
			header := pc.ShortName
			if header == "" {
				header = "OTHER"
			}
			return sectionKey{order: pc.DisplayOrder, header: header}
		}
	}
	header := "OTHER"
	if ok && category.ShortName != "" {
		header = category.ShortName
	} else if item.CategoryName != "" {
		header = item.CategoryName
	}
	return sectionKey{order: math.MaxInt, header: header}
}

func lineLess(a, b Line) bool {
	if a.IsVoid != b.IsVoid {
		return !a.IsVoid
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	aMods := strings.Join(a.ModifierNames, ",")
	bMods := strings.Join(b.ModifierNames, ",")
	if aMods != bMods {
		return aMods < bMods
	}
	return a.PrintMessage < b.PrintMessage
}
