// Package migration creates the schema on startup so a terminal is usable
// out of the box on sqlite, postgres, or mysql.
package migration

import (
	"errors"

	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	perioddomain "github.com/tablyhq/tably/internal/billperiod/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&organizationdomain.Organization{},

		&catalogdomain.PriceGroup{},
		&catalogdomain.PrintCategory{},
		&catalogdomain.Category{},
		&catalogdomain.Item{},
		&catalogdomain.ItemPrice{},
		&catalogdomain.Modifier{},
		&catalogdomain.ModifierItem{},
		&catalogdomain.ModifierItemPrice{},
		&catalogdomain.ItemModifier{},
		&catalogdomain.Discount{},
		&catalogdomain.Reason{},

		&printerdomain.Printer{},
		&printerdomain.PrinterGroup{},
		&printerdomain.PrinterGroupMember{},

		&billdomain.BillPeriod{},
		&billdomain.Bill{},
		&billdomain.BillItem{},
		&billdomain.BillItemModifier{},
		&billdomain.BillItemModifierItem{},
		&billdomain.BillDiscount{},
		&billdomain.PaymentType{},
		&billdomain.BillPayment{},
		&billdomain.BillItemPrintLog{},
		&billdomain.BillCallLog{},
		&billdomain.BillCallPrintLog{},

		&perioddomain.PeriodReportRollup{},
	}
}

func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(Models()...)
}
