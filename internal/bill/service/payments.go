package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/bill/summary"
	"github.com/tablyhq/tably/internal/events"
	"gorm.io/gorm"
)

func (s *Service) AddPayment(ctx context.Context, billID snowflake.ID, req billdomain.AddPaymentRequest) (billdomain.AddPaymentResult, error) {
	if req.Amount <= 0 {
		return billdomain.AddPaymentResult{}, billdomain.ErrInvalidAmount
	}

	unlock := s.lockBill(billID)
	defer unlock()

	var paymentType billdomain.PaymentType
	if err := s.db.WithContext(ctx).First(&paymentType, "id = ?", req.PaymentTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billdomain.AddPaymentResult{}, billdomain.ErrPaymentTypeNotFound
		}
		return billdomain.AddPaymentResult{}, err
	}

	now := s.clock.Now()
	var result billdomain.AddPaymentResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}

		payment := billdomain.BillPayment{
			ID:              s.genID.Generate(),
			BillID:          billID,
			PaymentTypeID:   paymentType.ID,
			PaymentTypeName: paymentType.Name,
			Amount:          req.Amount,
			IsChange:        req.IsChange,
			CreatedAt:       now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		result.Payment = payment

		records, err := s.loadLedger(ctx, tx, billID)
		if err != nil {
			return err
		}
		sum := s.summarize(ctx, records)
		result.Summary = sum

		// Overpayment is allowed: a non-positive balance settles the bill
		// with change for the difference.
		if req.IsChange || sum.Balance > 0 {
			return nil
		}

		if sum.Balance < 0 {
			change := billdomain.BillPayment{
				ID:              s.genID.Generate(),
				BillID:          billID,
				PaymentTypeID:   paymentType.ID,
				PaymentTypeName: paymentType.Name,
				Amount:          -sum.Balance,
				IsChange:        true,
				CreatedAt:       now,
			}
			if err := tx.Create(&change).Error; err != nil {
				return err
			}
			result.ChangeAmount = -sum.Balance
		}

		if err := s.closeBillTx(ctx, tx, billID, records, sum); err != nil {
			return err
		}
		result.BillClosed = true
		return nil
	})
	if err != nil {
		return billdomain.AddPaymentResult{}, err
	}

	s.metrics.ObservePayment(paymentType.Name, req.Amount)
	s.publish(billID, events.KindPaymentAdded)
	if result.BillClosed {
		s.metrics.ObserveBillClosed()
		s.publish(billID, events.KindBillClosed)
	}
	return result, nil
}

func (s *Service) AddDiscount(ctx context.Context, billID, discountID snowflake.ID) (billdomain.BillDiscount, error) {
	unlock := s.lockBill(billID)
	defer unlock()

	def, err := s.catalogSvc.GetDiscount(ctx, discountID)
	if err != nil {
		return billdomain.BillDiscount{}, err
	}

	now := s.clock.Now()
	discount := billdomain.BillDiscount{
		ID:           s.genID.Generate(),
		BillID:       billID,
		DiscountID:   def.ID,
		DiscountName: def.Name,
		CreatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}
		return tx.Create(&discount).Error
	})
	if err != nil {
		return billdomain.BillDiscount{}, err
	}

	s.publish(billID, events.KindDiscountAdded)
	return discount, nil
}

func (s *Service) Close(ctx context.Context, billID snowflake.ID) error {
	unlock := s.lockBill(billID)
	defer unlock()

	closed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.loadBill(ctx, tx, billID)
		if err != nil {
			return err
		}
		if bill.IsClosed {
			// Close is idempotent; finalized amounts stay untouched.
			return nil
		}

		records, err := s.loadLedger(ctx, tx, billID)
		if err != nil {
			return err
		}
		sum := s.summarize(ctx, records)
		if err := s.closeBillTx(ctx, tx, billID, records, sum); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return err
	}

	if closed {
		s.metrics.ObserveBillClosed()
		s.publish(billID, events.KindBillClosed)
	}
	return nil
}

// closeBillTx finalizes every bill discount's closing amount from the
// current summary, then marks the bill closed. Finalization happens once:
// a discount with a closing amount already set is left alone.
func (s *Service) closeBillTx(ctx context.Context, tx *gorm.DB, billID snowflake.ID, records ledgerRecords, sum summary.Summary) error {
	now := s.clock.Now()

	for _, discount := range records.Discounts {
		if discount.ClosingAmount != nil {
			continue
		}
		amount := sum.DiscountBreakdown[discount.ID]
		if err := tx.Model(&billdomain.BillDiscount{}).
			Where("id = ? AND closing_amount IS NULL", discount.ID).
			Update("closing_amount", amount).Error; err != nil {
			return err
		}
	}

	return tx.Model(&billdomain.Bill{}).
		Where("id = ? AND is_closed = ?", billID, false).
		Updates(map[string]any{"is_closed": true, "closed_at": now, "updated_at": now}).Error
}
