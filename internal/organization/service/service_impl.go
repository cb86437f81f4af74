package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Organization, error) {
	var org domain.Organization
	if err := s.db.WithContext(ctx).Order("created_at ASC").First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Organization{}, domain.ErrOrganizationNotFound
		}
		return domain.Organization{}, err
	}
	return org, nil
}

func (s *Service) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return domain.Organization{}, err
	}

	current.Name = org.Name
	current.MaxOpenBills = org.MaxOpenBills
	current.ReceiptHeader = org.ReceiptHeader
	current.ReceiptFooter = org.ReceiptFooter

	if err := s.db.WithContext(ctx).Save(&current).Error; err != nil {
		return domain.Organization{}, err
	}
	return current, nil
}
