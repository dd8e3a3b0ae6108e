// Package domain defines driver invoices submitted against payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Invoice is a driver-submitted document backing one payment. The file lives
// on disk under a generated name; FileName keeps what the driver uploaded.
type Invoice struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	PaymentID   snowflake.ID `gorm:"not null;index" json:"payment_id"`
	DriverCode  string       `gorm:"type:text;not null;index" json:"driver_code"`
	Period      string       `gorm:"type:text;not null" json:"period"`
	Number      string       `gorm:"type:text" json:"number,omitempty"`
	Value       float64      `gorm:"not null;default:0" json:"value"`
	FileName    string       `gorm:"type:text;not null" json:"file_name"`
	StoredName  string       `gorm:"type:text;not null" json:"-"`
	ContentType string       `gorm:"type:text" json:"content_type,omitempty"`
	Status      Status       `gorm:"type:text;not null;default:'submitted'" json:"status"`
	Notes       string       `gorm:"type:text" json:"notes,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
