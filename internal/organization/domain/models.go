// Package domain contains the organization settings model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization holds terminal-wide settings. A deployment has one row.
type Organization struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null" json:"name"`
	// MaxOpenBills bounds the reference numbers a period may hand out.
	MaxOpenBills  int       `gorm:"not null;default:100" json:"max_open_bills"`
	ReceiptHeader string    `gorm:"type:text" json:"receipt_header"`
	ReceiptFooter string    `gorm:"type:text" json:"receipt_footer"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
