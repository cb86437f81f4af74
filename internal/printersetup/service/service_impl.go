package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/internal/printersetup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("printersetup.service"),
	}
}

func (s *Service) ListPrinters(ctx context.Context) ([]domain.Printer, error) {
	var printers []domain.Printer
	err := s.db.WithContext(ctx).Order("name ASC").Find(&printers).Error
	return printers, err
}

func (s *Service) GetPrinter(ctx context.Context, id snowflake.ID) (domain.Printer, error) {
	var p domain.Printer
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Printer{}, domain.ErrPrinterNotFound
		}
		return domain.Printer{}, err
	}
	return p, nil
}

func (s *Service) PrintersForGroup(ctx context.Context, printerGroupID snowflake.ID) ([]domain.Printer, error) {
	var members []domain.PrinterGroupMember
	if err := s.db.WithContext(ctx).Where("printer_group_id = ?", printerGroupID).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.PrinterID)
	}

	var printers []domain.Printer
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&printers).Error
	return printers, err
}

func (s *Service) CallPrinters(ctx context.Context) ([]domain.Printer, error) {
	var printers []domain.Printer
	err := s.db.WithContext(ctx).Where("receives_bill_calls = ?", true).Order("name ASC").Find(&printers).Error
	return printers, err
}
