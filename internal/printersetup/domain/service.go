package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrPrinterNotFound = errors.New("printer_not_found")

// Service exposes printer lookups for dispatch and fan-out.
type Service interface {
	ListPrinters(ctx context.Context) ([]Printer, error)
	GetPrinter(ctx context.Context, id snowflake.ID) (Printer, error)
	// PrintersForGroup returns every printer an item in the group fans out to.
	PrintersForGroup(ctx context.Context, printerGroupID snowflake.ID) ([]Printer, error)
	// CallPrinters returns printers flagged to receive bill calls.
	CallPrinters(ctx context.Context) ([]Printer, error)
}
