// Package domain contains persistence models for individual manifest deliveries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Delivery is one parsed manifest line. Rows are immutable after ingestion
// except for the bonus and total fields the bonus engine fills in. An AWB is
// booked at most once per period; the unique index backs that up.
type Delivery struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	DriverCode        string       `gorm:"type:text;not null;index:idx_deliveries_driver_period" json:"driver_code"`
	AWB               string       `gorm:"type:text;not null;uniqueIndex:idx_deliveries_awb_period" json:"awb"`
	Sender            string       `gorm:"type:text" json:"sender,omitempty"`
	ServiceType       int          `gorm:"not null;index" json:"service_type"`
	Weight            float64      `json:"weight"`
	Status            string       `gorm:"type:text" json:"status"`
	StatusDescription string       `gorm:"type:text" json:"status_description,omitempty"`
	DeliveryDate      *time.Time   `json:"delivery_date,omitempty"`
	Period            string       `gorm:"type:text;not null;index:idx_deliveries_driver_period;uniqueIndex:idx_deliveries_awb_period" json:"period"`
	BaseValue         float64      `gorm:"not null" json:"base_value"`
	BonusValue        float64      `gorm:"not null;default:0" json:"bonus_value"`
	TotalValue        float64      `gorm:"not null" json:"total_value"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Delivery) TableName() string { return "deliveries" }
