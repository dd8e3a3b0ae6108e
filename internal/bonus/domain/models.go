// Package domain defines the bonus rule engine's models.
package domain

import (
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
)

type BonusType string

const (
	BonusFixed      BonusType = "fixed"
	BonusPercentage BonusType = "percentage"
)

type ConditionType string

const (
	// ConditionServiceType matches deliveries whose service-type code equals
	// the condition value.
	ConditionServiceType ConditionType = "service_type"
	// ConditionVolume matches every delivery of the driver once the period's
	// delivery count reaches the condition value.
	ConditionVolume ConditionType = "volume"
)

// BonusRule describes one bonus the engine can grant. Value is an amount per
// delivery for fixed rules and a percentage of the delivery's base value for
// percentage rules.
type BonusRule struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"type:text;not null" json:"name"`
	ConditionType  ConditionType `gorm:"type:text;not null" json:"condition_type"`
	ConditionValue string        `gorm:"type:text;not null" json:"condition_value"`
	BonusType      BonusType     `gorm:"type:text;not null" json:"bonus_type"`
	Value          float64       `gorm:"not null" json:"value"`
	ValidFrom      *time.Time    `json:"valid_from,omitempty"`
	ValidTo        *time.Time    `json:"valid_to,omitempty"`
	Active         bool          `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BonusRule) TableName() string { return "bonus_rules" }

// ConditionCode parses the condition value, which both condition types store
// as an integer.
func (r *BonusRule) ConditionCode() (int, error) {
	return strconv.Atoi(r.ConditionValue)
}

// AppliesTo reports whether the rule's validity window overlaps the period.
func (r *BonusRule) AppliesTo(start, end time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && r.ValidFrom.After(end) {
		return false
	}
	if r.ValidTo != nil && r.ValidTo.Before(start) {
		return false
	}
	return true
}

// Bonus is one materialized grant of a rule against a driver's period.
type Bonus struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	RuleID      snowflake.ID `gorm:"not null;index" json:"rule_id"`
	DriverCode  string       `gorm:"type:text;not null;index:idx_bonuses_driver_period" json:"driver_code"`
	Period      string       `gorm:"type:text;not null;index:idx_bonuses_driver_period" json:"period"`
	Description string       `gorm:"type:text" json:"description"`
	Value       float64      `gorm:"not null" json:"value"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Bonus) TableName() string { return "bonuses" }
