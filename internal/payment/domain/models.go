// Package domain contains the per-driver, per-period payment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusInvoiceReceived Status = "invoice_received"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Payment accumulates one driver's earnings for one half-month period.
// TotalValue is always derived: base + bonus - discount.
type Payment struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	DriverCode      string        `gorm:"type:text;not null;uniqueIndex:idx_payments_driver_period" json:"driver_code"`
	Period          string        `gorm:"type:text;not null;uniqueIndex:idx_payments_driver_period" json:"period"`
	StartDate       time.Time     `gorm:"not null" json:"start_date"`
	EndDate         time.Time     `gorm:"not null" json:"end_date"`
	DeliveriesCount int           `gorm:"not null;default:0" json:"deliveries_count"`
	BaseValue       float64       `gorm:"not null;default:0" json:"base_value"`
	BonusValue      float64       `gorm:"not null;default:0" json:"bonus_value"`
	DiscountValue   float64       `gorm:"not null;default:0" json:"discount_value"`
	TotalValue      float64       `gorm:"not null;default:0" json:"total_value"`
	Status          Status        `gorm:"type:text;not null;default:'pending'" json:"status"`
	InvoiceID       *snowflake.ID `json:"invoice_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Recompute re-derives the payable total from its components.
func (p *Payment) Recompute() {
	p.TotalValue = p.BaseValue + p.BonusValue - p.DiscountValue
}

// CheckInvariant verifies the derived total. A mismatch means an aggregation
// bug, not bad input.
func (p *Payment) CheckInvariant() error {
	want := p.BaseValue + p.BonusValue - p.DiscountValue
	if diff := p.TotalValue - want; diff > 1e-6 || diff < -1e-6 {
		return ErrInconsistentTotal
	}
	return nil
}

var transitions = map[Status][]Status{
	StatusPending:         {StatusInvoiceReceived},
	StatusInvoiceReceived: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusPending},
}

// ValidTransition reports whether the lifecycle permits moving from one
// status to another.
func ValidTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
