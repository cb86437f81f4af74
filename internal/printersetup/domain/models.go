// Package domain contains persistence models for physical printer setup.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tablyhq/tably/pkg/printer"
)

// Printer is one physical kitchen or receipt printer.
type Printer struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Name string       `gorm:"type:text;not null" json:"name"`
	// ConnectionKind is a closed enum, not an open string: network, usb, null.
	ConnectionKind    printer.ConnectionKind `gorm:"type:text;not null;default:'null'" json:"connection_kind"`
	Address           string                 `gorm:"type:text" json:"address"`
	ReceivesBillCalls bool                   `gorm:"not null;default:false" json:"receives_bill_calls"`
	CreatedAt         time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Printer) TableName() string { return "printers" }

// Descriptor builds the transport connection descriptor for this printer.
func (p Printer) Descriptor() printer.Descriptor {
	return printer.Descriptor{Kind: p.ConnectionKind, Address: p.Address}
}

// PrinterGroup routes items to a set of printers.
type PrinterGroup struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PrinterGroup) TableName() string { return "printer_groups" }

// PrinterGroupMember links a printer into a printer group.
type PrinterGroupMember struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	PrinterGroupID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_printer_group_members,priority:1" json:"printer_group_id"`
	PrinterID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_printer_group_members,priority:2" json:"printer_id"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PrinterGroupMember) TableName() string { return "printer_group_members" }
