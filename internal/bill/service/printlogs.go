package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	"github.com/tablyhq/tably/internal/events"
	"gorm.io/gorm"
)

func (s *Service) AddCall(ctx context.Context, billID snowflake.ID, message string) (billdomain.BillCallLog, error) {
	unlock := s.lockBill(billID)
	defer unlock()

	printers, err := s.printerSvc.CallPrinters(ctx)
	if err != nil {
		return billdomain.BillCallLog{}, err
	}

	now := s.clock.Now()
	callLog := billdomain.BillCallLog{
		ID:        s.genID.Generate(),
		BillID:    billID,
		Message:   message,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOpenBill(ctx, tx, billID); err != nil {
			return err
		}
		if err := tx.Create(&callLog).Error; err != nil {
			return err
		}
		for _, target := range printers {
			printLog := billdomain.BillCallPrintLog{
				ID:            s.genID.Generate(),
				BillID:        billID,
				BillCallLogID: callLog.ID,
				PrinterID:     target.ID,
				Status:        billdomain.PrintLogPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&printLog).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return billdomain.BillCallLog{}, err
	}

	s.publish(billID, events.KindCallRaised)
	return callLog, nil
}

// MarkLogsProcessing claims every retryable log on the bill for one
// dispatch cycle. The claim commits before any transmission starts so a
// concurrently triggered second Store cannot re-pick the same logs.
func (s *Service) MarkLogsProcessing(ctx context.Context, billID snowflake.ID) ([]billdomain.BillItemPrintLog, []billdomain.BillCallPrintLog, error) {
	unlock := s.lockBill(billID)
	defer unlock()

	now := s.clock.Now()
	var itemLogs []billdomain.BillItemPrintLog
	var callLogs []billdomain.BillCallPrintLog

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadBill(ctx, tx, billID); err != nil {
			return err
		}

		retryable := []billdomain.PrintLogStatus{billdomain.PrintLogPending, billdomain.PrintLogErrored}
		if err := tx.Where("bill_id = ? AND status IN ?", billID, retryable).
			Order("created_at ASC, id ASC").Find(&itemLogs).Error; err != nil {
			return err
		}
		if err := tx.Where("bill_id = ? AND status IN ?", billID, retryable).
			Order("created_at ASC, id ASC").Find(&callLogs).Error; err != nil {
			return err
		}

		for i := range itemLogs {
			if err := tx.Model(&billdomain.BillItemPrintLog{}).
				Where("id = ?", itemLogs[i].ID).
				Updates(map[string]any{"status": billdomain.PrintLogProcessing, "updated_at": now}).Error; err != nil {
				return err
			}
			itemLogs[i].Status = billdomain.PrintLogProcessing
		}
		for i := range callLogs {
			if err := tx.Model(&billdomain.BillCallPrintLog{}).
				Where("id = ?", callLogs[i].ID).
				Updates(map[string]any{"status": billdomain.PrintLogProcessing, "updated_at": now}).Error; err != nil {
				return err
			}
			callLogs[i].Status = billdomain.PrintLogProcessing
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return itemLogs, callLogs, nil
}

// ProcessPrintLogs writes one dispatch cycle's per-printer outcomes back
// as a single atomic batch. Illegal transitions fail the whole batch.
func (s *Service) ProcessPrintLogs(ctx context.Context, billID snowflake.ID, updates []billdomain.PrintLogUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			var current billdomain.BillItemPrintLog
			if err := tx.First(&current, "id = ? AND bill_id = ?", update.LogID, billID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return billdomain.ErrPrintLogNotFound
				}
				return err
			}
			if !current.Status.CanTransition(update.Status) {
				return billdomain.ErrIllegalTransition
			}
			if err := tx.Model(&billdomain.BillItemPrintLog{}).
				Where("id = ?", update.LogID).
				Updates(map[string]any{"status": update.Status, "detail": update.Detail, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(billID, events.KindPrintStatus)
	return nil
}

// ProcessCallLogs mirrors ProcessPrintLogs for bill-call delivery logs.
func (s *Service) ProcessCallLogs(ctx context.Context, billID snowflake.ID, updates []billdomain.PrintLogUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			var current billdomain.BillCallPrintLog
			if err := tx.First(&current, "id = ? AND bill_id = ?", update.LogID, billID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return billdomain.ErrPrintLogNotFound
				}
				return err
			}
			if !current.Status.CanTransition(update.Status) {
				return billdomain.ErrIllegalTransition
			}
			if err := tx.Model(&billdomain.BillCallPrintLog{}).
				Where("id = ?", update.LogID).
				Updates(map[string]any{"status": update.Status, "detail": update.Detail, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(billID, events.KindPrintStatus)
	return nil
}
