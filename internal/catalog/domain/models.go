// Package domain contains persistence models for the menu catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PriceGroup is a named pricing tier (dine-in, takeaway, happy hour).
type PriceGroup struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"type:text;not null" json:"name"`
	ShortName        string       `gorm:"type:text;not null" json:"short_name"`
	Color            string       `gorm:"type:text" json:"color"`
	PrepTimeRequired bool         `gorm:"not null;default:false" json:"prep_time_required"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PriceGroup) TableName() string { return "price_groups" }

// PrintCategory orders and labels kitchen ticket sections.
type PrintCategory struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ShortName    string       `gorm:"type:text;not null" json:"short_name"`
	DisplayOrder int          `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PrintCategory) TableName() string { return "print_categories" }

// Category groups catalog items; it may map onto a print category.
type Category struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"type:text;not null" json:"name"`
	ShortName       string        `gorm:"type:text;not null" json:"short_name"`
	PrintCategoryID *snowflake.ID `gorm:"index" json:"print_category_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Category) TableName() string { return "categories" }

// Item is a sellable catalog entry.
type Item struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	CategoryID     snowflake.ID  `gorm:"not null;index" json:"category_id"`
	PrinterGroupID *snowflake.ID `gorm:"index" json:"printer_group_id,omitempty"`
	Name           string        `gorm:"type:text;not null" json:"name"`
	ShortName      string        `gorm:"type:text;not null" json:"short_name"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "items" }

// ItemPrice links an item to a price group. A null Price means the item
// is not sellable in that price group.
type ItemPrice struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ItemID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_item_prices_item_group,priority:1" json:"item_id"`
	PriceGroupID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_item_prices_item_group,priority:2" json:"price_group_id"`
	Price        *int64       `gorm:"" json:"price"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ItemPrice) TableName() string { return "item_prices" }

// Modifier is a selectable option group (e.g. "Sauce", "Doneness").
type Modifier struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	MinItems  int          `gorm:"not null;default:0" json:"min_items"`
	MaxItems  int          `gorm:"not null;default:1" json:"max_items"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Modifier) TableName() string { return "modifiers" }

// ModifierItem is one selectable option within a modifier group.
type ModifierItem struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ModifierID snowflake.ID `gorm:"not null;index" json:"modifier_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	ShortName  string       `gorm:"type:text;not null" json:"short_name"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ModifierItem) TableName() string { return "modifier_items" }

// ModifierItemPrice mirrors ItemPrice one level down.
type ModifierItemPrice struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ModifierItemID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_modifier_item_prices,priority:1" json:"modifier_item_id"`
	PriceGroupID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_modifier_item_prices,priority:2" json:"price_group_id"`
	Price          *int64       `gorm:"" json:"price"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ModifierItemPrice) TableName() string { return "modifier_item_prices" }

// ItemModifier attaches a modifier group to an item.
type ItemModifier struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ItemID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_item_modifiers,priority:1" json:"item_id"`
	ModifierID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_item_modifiers,priority:2" json:"modifier_id"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ItemModifier) TableName() string { return "item_modifiers" }

// DiscountKind distinguishes percentage discounts from fixed amounts.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountAmount     DiscountKind = "amount"
)

// Discount is a catalog discount definition.
type Discount struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Kind      DiscountKind `gorm:"type:text;not null" json:"kind"`
	Value     int64        `gorm:"not null" json:"value"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Discount) TableName() string { return "discounts" }

// Reason is a predefined void/comp reason.
type Reason struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Reason) TableName() string { return "reasons" }
