package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	catalogdomain "github.com/tablyhq/tably/internal/catalog/domain"
	"github.com/tablyhq/tably/internal/events"
	printerdomain "github.com/tablyhq/tably/internal/printersetup/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// modifierSnapshot is the resolved, priced selection for one modifier
// group, computed before the transaction starts.
type modifierSnapshot struct {
	Modifier catalogdomain.Modifier
	Items    []modifierItemSnapshot
}

type modifierItemSnapshot struct {
	Item  catalogdomain.ModifierItem
	Price int64
}

func (s *Service) AddItems(ctx context.Context, billID snowflake.ID, req billdomain.AddItemsRequest) ([]billdomain.BillItem, error) {
	if req.Quantity < 1 {
		return nil, billdomain.ErrInvalidQuantity
	}

	unlock := s.lockBill(billID)
	defer unlock()

	item, err := s.catalogSvc.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	category, err := s.catalogSvc.GetCategory(ctx, item.CategoryID)
	if err != nil {
		return nil, err
	}
	priceGroup, err := s.catalogSvc.GetPriceGroup(ctx, req.PriceGroupID)
	if err != nil {
		return nil, err
	}

	prices, err := s.catalogSvc.ItemPrices(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	itemPrice, ok := catalogdomain.ResolvePrice(req.PriceGroupID, catalogdomain.ItemPriceRows(prices))
	if !ok {
		return nil, catalogdomain.ErrPriceUnavailable
	}

	snapshots, err := s.resolveModifiers(ctx, req)
	if err != nil {
		return nil, err
	}

	var printers []printerdomain.Printer
	if item.PrinterGroupID != nil {
		printers, err = s.printerSvc.PrintersForGroup(ctx, *item.PrinterGroupID)
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	created := make([]billdomain.BillItem, 0, req.Quantity)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}

		for i := 0; i < req.Quantity; i++ {
			billItem := billdomain.BillItem{
				ID:             s.genID.Generate(),
				BillID:         billID,
				ItemID:         item.ID,
				ItemName:       item.Name,
				ItemShortName:  item.ShortName,
				ItemPrice:      itemPrice,
				PriceGroupID:   priceGroup.ID,
				PriceGroupName: priceGroup.Name,
				CategoryID:     category.ID,
				CategoryName:   category.Name,
				PrintMessage:   req.PrintMessage,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.Create(&billItem).Error; err != nil {
				return err
			}

			for _, snap := range snapshots {
				billItemModifier := billdomain.BillItemModifier{
					ID:           s.genID.Generate(),
					BillItemID:   billItem.ID,
					ModifierID:   snap.Modifier.ID,
					ModifierName: snap.Modifier.Name,
					CreatedAt:    now,
				}
				if err := tx.Create(&billItemModifier).Error; err != nil {
					return err
				}
				for _, sel := range snap.Items {
					modItem := billdomain.BillItemModifierItem{
						ID:                    s.genID.Generate(),
						BillItemModifierID:    billItemModifier.ID,
						BillItemID:            billItem.ID,
						ModifierItemID:        sel.Item.ID,
						ModifierItemName:      sel.Item.Name,
						ModifierItemShortName: sel.Item.ShortName,
						ModifierItemPrice:     sel.Price,
						CreatedAt:             now,
					}
					if err := tx.Create(&modItem).Error; err != nil {
						return err
					}
				}
			}

			// One print log per target printer, all pending.
			for _, target := range printers {
				printLog := billdomain.BillItemPrintLog{
					ID:         s.genID.Generate(),
					BillID:     billID,
					BillItemID: billItem.ID,
					PrinterID:  target.ID,
					Type:       billdomain.PrintLogStd,
					Status:     billdomain.PrintLogPending,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.Create(&printLog).Error; err != nil {
					return err
				}
			}

			created = append(created, billItem)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(billID, events.KindItemsAdded)
	return created, nil
}

func (s *Service) resolveModifiers(ctx context.Context, req billdomain.AddItemsRequest) ([]modifierSnapshot, error) {
	snapshots := make([]modifierSnapshot, 0, len(req.Modifiers))
	for _, selection := range req.Modifiers {
		if err := s.catalogSvc.ValidateModifierSelection(ctx, req.ItemID, selection.ModifierID, selection.ModifierItems); err != nil {
			return nil, err
		}
		modifier, err := s.catalogSvc.GetModifier(ctx, selection.ModifierID)
		if err != nil {
			return nil, err
		}

		snap := modifierSnapshot{Modifier: modifier}
		for _, modifierItemID := range selection.ModifierItems {
			modifierItem, err := s.catalogSvc.GetModifierItem(ctx, modifierItemID)
			if err != nil {
				return nil, err
			}
			prices, err := s.catalogSvc.ModifierItemPrices(ctx, modifierItemID)
			if err != nil {
				return nil, err
			}
			price, ok := catalogdomain.ResolvePrice(req.PriceGroupID, catalogdomain.ModifierItemPriceRows(prices))
			if !ok {
				return nil, catalogdomain.ErrPriceUnavailable
			}
			snap.Items = append(snap.Items, modifierItemSnapshot{Item: modifierItem, Price: price})
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *Service) StoreBill(ctx context.Context, billID snowflake.ID) error {
	unlock := s.lockBill(billID)
	defer unlock()

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.loadOpenBill(ctx, tx, billID)
		if err != nil {
			return err
		}

		// Storing records kitchen acceptance once; items already stored
		// keep their original storedAt.
		if err := tx.Model(&billdomain.BillItem{}).
			Where("bill_id = ? AND is_stored = ? AND is_voided = ?", billID, false, false).
			Updates(map[string]any{"is_stored": true, "stored_at": now, "updated_at": now}).Error; err != nil {
			return err
		}

		if bill.PrepAt == nil {
			return tx.Model(&billdomain.Bill{}).Where("id = ?", billID).
				Updates(map[string]any{"prep_at": now, "updated_at": now}).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(billID, events.KindBillStored)
	return nil
}

func (s *Service) VoidItem(ctx context.Context, billID, billItemID snowflake.ID, reasonID *snowflake.ID) error {
	unlock := s.lockBill(billID)
	defer unlock()

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}
		item, err := s.loadBillItem(ctx, tx, billID, billItemID)
		if err != nil {
			return err
		}
		if item.IsVoided {
			return billdomain.ErrItemAlreadyVoided
		}
		if item.IsComp {
			return billdomain.ErrItemAlreadyComp
		}
		// Past the grace period (kitchen has accepted) a reason is mandatory.
		if item.IsStored && reasonID == nil {
			return billdomain.ErrVoidReasonRequired
		}

		updates := map[string]any{
			"is_voided":  true,
			"voided_at":  now,
			"updated_at": now,
		}
		if reasonID != nil {
			reason, err := s.catalogSvc.GetReason(ctx, *reasonID)
			if err != nil {
				return err
			}
			updates["reason_name"] = reason.Name
			updates["reason_description"] = reason.Description
		}
		if err := tx.Model(&billdomain.BillItem{}).Where("id = ?", billItemID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(&billdomain.BillItemModifierItem{}).
			Where("bill_item_id = ?", billItemID).
			Update("is_voided", true).Error; err != nil {
			return err
		}

		if item.IsStored {
			// Kitchen already has the item: queue a void notice per printer
			// that received the original line.
			var stdLogs []billdomain.BillItemPrintLog
			if err := tx.Where("bill_item_id = ? AND type = ?", billItemID, billdomain.PrintLogStd).Find(&stdLogs).Error; err != nil {
				return err
			}
			for _, stdLog := range stdLogs {
				voidLog := billdomain.BillItemPrintLog{
					ID:         s.genID.Generate(),
					BillID:     billID,
					BillItemID: billItemID,
					PrinterID:  stdLog.PrinterID,
					Type:       billdomain.PrintLogVoid,
					Status:     billdomain.PrintLogPending,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.Create(&voidLog).Error; err != nil {
					return err
				}
			}
			return nil
		}

		// Cancelled before store: the kitchen never saw the item, so its
		// undelivered std lines are cancelled instead of printed.
		return tx.Model(&billdomain.BillItemPrintLog{}).
			Where("bill_item_id = ? AND type = ? AND status = ?", billItemID, billdomain.PrintLogStd, billdomain.PrintLogPending).
			Updates(map[string]any{"status": billdomain.PrintLogCancelled, "updated_at": now}).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("bill item voided",
		zap.String("bill_id", billID.String()),
		zap.String("bill_item_id", billItemID.String()))
	s.publish(billID, events.KindItemVoided)
	return nil
}

func (s *Service) CompItem(ctx context.Context, billID, billItemID snowflake.ID, reasonID snowflake.ID) error {
	if reasonID == 0 {
		return billdomain.ErrCompReasonRequired
	}

	unlock := s.lockBill(billID)
	defer unlock()

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}
		item, err := s.loadBillItem(ctx, tx, billID, billItemID)
		if err != nil {
			return err
		}
		if item.IsVoided {
			return billdomain.ErrItemAlreadyVoided
		}
		if item.IsComp {
			return billdomain.ErrItemAlreadyComp
		}

		reason, err := s.catalogSvc.GetReason(ctx, reasonID)
		if err != nil {
			return err
		}

		if err := tx.Model(&billdomain.BillItem{}).Where("id = ?", billItemID).Updates(map[string]any{
			"is_comp":            true,
			"reason_name":        reason.Name,
			"reason_description": reason.Description,
			"updated_at":         now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&billdomain.BillItemModifierItem{}).
			Where("bill_item_id = ?", billItemID).
			Update("is_comp", true).Error
	})
	if err != nil {
		return err
	}

	s.publish(billID, events.KindItemComped)
	return nil
}

func (s *Service) loadBillItem(ctx context.Context, tx *gorm.DB, billID, billItemID snowflake.ID) (billdomain.BillItem, error) {
	var item billdomain.BillItem
	if err := tx.WithContext(ctx).First(&item, "id = ? AND bill_id = ?", billItemID, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.BillItem{}, billdomain.ErrBillItemNotFound
		}
		return billdomain.BillItem{}, err
	}
	return item, nil
}
