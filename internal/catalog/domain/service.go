package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrItemNotFound              = errors.New("item_not_found")
	ErrModifierNotFound          = errors.New("modifier_not_found")
	ErrDiscountNotFound          = errors.New("discount_not_found")
	ErrInvalidModifierSelection  = errors.New("invalid_modifier_selection")
	ErrModifierNotLinkedToItem   = errors.New("modifier_not_linked_to_item")
	ErrPriceUnavailable          = errors.New("price_unavailable")
	ErrInvalidDiscountDefinition = errors.New("invalid_discount_definition")
)

// SellableItem is an item together with its resolved price for one price group.
type SellableItem struct {
	Item  Item  `json:"item"`
	Price int64 `json:"price"`
}

// Service exposes catalog reads used by the bill aggregate and the UI
// collaborator. The catalog is never mutated by the ledger core.
type Service interface {
	ListPriceGroups(ctx context.Context) ([]PriceGroup, error)
	GetPriceGroup(ctx context.Context, id snowflake.ID) (PriceGroup, error)
	GetItem(ctx context.Context, id snowflake.ID) (Item, error)
	GetCategory(ctx context.Context, id snowflake.ID) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListPrintCategories(ctx context.Context) ([]PrintCategory, error)
	ItemPrices(ctx context.Context, itemID snowflake.ID) ([]ItemPrice, error)
	ModifierItemPrices(ctx context.Context, modifierItemID snowflake.ID) ([]ModifierItemPrice, error)

	// SellableItems hides items with no resolvable price in the price group.
	SellableItems(ctx context.Context, priceGroupID snowflake.ID) ([]SellableItem, error)

	GetModifier(ctx context.Context, id snowflake.ID) (Modifier, error)
	GetModifierItem(ctx context.Context, id snowflake.ID) (ModifierItem, error)
	ItemModifiers(ctx context.Context, itemID snowflake.ID) ([]Modifier, error)

	// ValidateModifierSelection enforces the modifier group's item bounds.
	// Callers run this before invoking the bill aggregate.
	ValidateModifierSelection(ctx context.Context, itemID, modifierID snowflake.ID, selected []snowflake.ID) error

	ListDiscounts(ctx context.Context) ([]Discount, error)
	GetDiscount(ctx context.Context, id snowflake.ID) (Discount, error)
	ListReasons(ctx context.Context) ([]Reason, error)
	GetReason(ctx context.Context, id snowflake.ID) (Reason, error)
}
