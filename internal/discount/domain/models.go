// Package domain defines installment-based discounts charged against payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// RuleType classifies why money is being withheld.
type RuleType string

const (
	RuleLoss    RuleType = "loss"
	RuleAdvance RuleType = "advance"
	RuleLoan    RuleType = "loan"
)

// DiscountRule caps what a single discount may charge: its total amount and
// over how many periods it may be spread. A nil MaxValue means the rule puts
// no ceiling on the amount.
type DiscountRule struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	Type            RuleType     `gorm:"type:text;not null" json:"discount_type"`
	MaxValue        *float64     `json:"max_value,omitempty"`
	MaxInstallments int          `gorm:"not null" json:"max_installments"`
	Active          bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DiscountRule) TableName() string { return "discount_rules" }

// Discount is one debt a driver pays off across periods. DiscountValue is the
// amount charged so far; LastPeriod guards against charging the same period
// twice. Installments are numbered from 1: CurrentInstallment points at the
// next one due and ends up at Installments+1 once the debt is settled.
type Discount struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	RuleID             snowflake.ID `gorm:"not null;index" json:"rule_id"`
	DriverCode         string       `gorm:"type:text;not null;index" json:"driver_code"`
	Description        string       `gorm:"type:text" json:"description"`
	TotalValue         float64      `gorm:"not null" json:"total_value"`
	Installments       int          `gorm:"not null" json:"installments"`
	InstallmentValue   float64      `gorm:"not null" json:"installment_value"`
	CurrentInstallment int          `gorm:"not null;default:1" json:"current_installment"`
	DiscountValue      float64      `gorm:"not null;default:0" json:"discount_value"`
	LastPeriod         string       `gorm:"type:text" json:"last_period,omitempty"`
	Status             Status       `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Discount) TableName() string { return "discounts" }
