// Package seed bootstraps the single organization row and the default
// payment types a fresh terminal needs.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	organizationdomain "github.com/tablyhq/tably/internal/organization/domain"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

var defaultPaymentTypes = []string{"Cash", "Card", "Voucher"}

// EnsureDefaults seeds the organization and payment types. Re-running it
// is a no-op.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureOrganization(tx, node); err != nil {
			return err
		}
		return ensurePaymentTypes(tx, node)
	})
}

func ensureOrganization(tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.Model(&organizationdomain.Organization{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.Create(&organizationdomain.Organization{
		ID:           node.Generate(),
		Name:         defaultOrgName,
		MaxOpenBills: 100,
	}).Error
}

func ensurePaymentTypes(tx *gorm.DB, node *snowflake.Node) error {
	for _, name := range defaultPaymentTypes {
		var count int64
		if err := tx.Model(&billdomain.PaymentType{}).
			Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&billdomain.PaymentType{
			ID:   node.Generate(),
			Name: name,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
