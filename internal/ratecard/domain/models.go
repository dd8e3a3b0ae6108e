// Package domain contains the per-service-type rate card.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ServiceType maps a carrier service-type code to the unit rate paid per delivery.
type ServiceType struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        int          `gorm:"not null;uniqueIndex" json:"code"`
	Description string       `gorm:"not null" json:"description"`
	UnitRate    float64      `gorm:"not null" json:"unit_rate"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ServiceType) TableName() string { return "service_types" }
