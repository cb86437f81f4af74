package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/internal/catalog/domain"
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
		log: p.Log.Named("catalog.service"),
	}
}

func (s *Service) ListPriceGroups(ctx context.Context) ([]domain.PriceGroup, error) {
	var groups []domain.PriceGroup
	err := s.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}

func (s *Service) GetPriceGroup(ctx context.Context, id snowflake.ID) (domain.PriceGroup, error) {
	var group domain.PriceGroup
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	return group, err
}

func (s *Service) GetItem(ctx context.Context, id snowflake.ID) (domain.Item, error) {
	var item domain.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, err
	}
	return item, nil
}

func (s *Service) GetCategory(ctx context.Context, id snowflake.ID) (domain.Category, error) {
	var category domain.Category
	err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error
	return category, err
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (s *Service) ListPrintCategories(ctx context.Context) ([]domain.PrintCategory, error) {
	var categories []domain.PrintCategory
	err := s.db.WithContext(ctx).Order("display_order ASC, short_name ASC").Find(&categories).Error
	return categories, err
}

func (s *Service) ItemPrices(ctx context.Context, itemID snowflake.ID) ([]domain.ItemPrice, error) {
	var prices []domain.ItemPrice
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&prices).Error
	return prices, err
}

func (s *Service) ModifierItemPrices(ctx context.Context, modifierItemID snowflake.ID) ([]domain.ModifierItemPrice, error) {
	var prices []domain.ModifierItemPrice
	err := s.db.WithContext(ctx).Where("modifier_item_id = ?", modifierItemID).Find(&prices).Error
	return prices, err
}

func (s *Service) SellableItems(ctx context.Context, priceGroupID snowflake.ID) ([]domain.SellableItem, error) {
	var items []domain.Item
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	var prices []domain.ItemPrice
	if err := s.db.WithContext(ctx).Where("price_group_id = ?", priceGroupID).Find(&prices).Error; err != nil {
		return nil, err
	}

	byItem := make(map[snowflake.ID][]domain.PriceRow, len(prices))
	for _, p := range prices {
		byItem[p.ItemID] = append(byItem[p.ItemID], domain.PriceRow{PriceGroupID: p.PriceGroupID, Price: p.Price})
	}

	sellable := make([]domain.SellableItem, 0, len(items))
	for _, item := range items {
		price, ok := domain.ResolvePrice(priceGroupID, byItem[item.ID])
		if !ok {
			continue
		}
		sellable = append(sellable, domain.SellableItem{Item: item, Price: price})
	}
	return sellable, nil
}

func (s *Service) GetModifier(ctx context.Context, id snowflake.ID) (domain.Modifier, error) {
	var modifier domain.Modifier
	if err := s.db.WithContext(ctx).First(&modifier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Modifier{}, domain.ErrModifierNotFound
		}
		return domain.Modifier{}, err
	}
	return modifier, nil
}

func (s *Service) GetModifierItem(ctx context.Context, id snowflake.ID) (domain.ModifierItem, error) {
	var item domain.ModifierItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	return item, err
}

func (s *Service) ItemModifiers(ctx context.Context, itemID snowflake.ID) ([]domain.Modifier, error) {
	var links []domain.ItemModifier
	if err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ModifierID)
	}

	var modifiers []domain.Modifier
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&modifiers).Error
	return modifiers, err
}

func (s *Service) ValidateModifierSelection(ctx context.Context, itemID, modifierID snowflake.ID, selected []snowflake.ID) error {
	var link domain.ItemModifier
	if err := s.db.WithContext(ctx).First(&link, "item_id = ? AND modifier_id = ?", itemID, modifierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrModifierNotLinkedToItem
		}
		return err
	}

	modifier, err := s.GetModifier(ctx, modifierID)
	if err != nil {
		return err
	}
	if len(selected) < modifier.MinItems || len(selected) > modifier.MaxItems {
		return domain.ErrInvalidModifierSelection
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.ModifierItem{}).
		Where("modifier_id = ? AND id IN ?", modifierID, selected).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(selected)) {
		return domain.ErrInvalidModifierSelection
	}
	return nil
}

func (s *Service) ListDiscounts(ctx context.Context) ([]domain.Discount, error) {
	var discounts []domain.Discount
	err := s.db.WithContext(ctx).Order("name ASC").Find(&discounts).Error
	return discounts, err
}

func (s *Service) GetDiscount(ctx context.Context, id snowflake.ID) (domain.Discount, error) {
	var discount domain.Discount
	if err := s.db.WithContext(ctx).First(&discount, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Discount{}, domain.ErrDiscountNotFound
		}
		return domain.Discount{}, err
	}
	return discount, nil
}

func (s *Service) ListReasons(ctx context.Context) ([]domain.Reason, error) {
	var reasons []domain.Reason
	err := s.db.WithContext(ctx).Order("name ASC").Find(&reasons).Error
	return reasons, err
}

func (s *Service) GetReason(ctx context.Context, id snowflake.ID) (domain.Reason, error) {
	var reason domain.Reason
	err := s.db.WithContext(ctx).First(&reason, "id = ?", id).Error
	return reason, err
}
