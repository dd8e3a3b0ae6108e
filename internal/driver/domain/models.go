// Package domain contains persistence models for courier drivers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Driver is a courier identified by the code the carrier's manifests use.
// Drivers are never hard-deleted; Active is flipped off instead.
type Driver struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	DriverCode string       `gorm:"type:text;not null;uniqueIndex" json:"driver_code"`
	Name       string       `gorm:"not null" json:"name"`
	Active     bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Driver) TableName() string { return "drivers" }

// PlaceholderName is used when a manifest references a driver no roster
// import has named yet.
func PlaceholderName(code string) string { return "Driver " + code }
