package domain

import (
	"context"
	"errors"
	"time"

	"github.com/courierlog/payroll/internal/period"
)

type CreateRuleRequest struct {
	Name           string        `json:"name"`
	ConditionType  ConditionType `json:"condition_type"`
	ConditionValue string        `json:"condition_value"`
	BonusType      BonusType     `json:"bonus_type"`
	Value          float64       `json:"value"`
	ValidFrom      *time.Time    `json:"valid_from"`
	ValidTo        *time.Time    `json:"valid_to"`
}

type UpdateRuleRequest struct {
	RuleID         string         `json:"-"`
	Name           *string        `json:"name"`
	ConditionType  *ConditionType `json:"condition_type"`
	ConditionValue *string        `json:"condition_value"`
	BonusType      *BonusType     `json:"bonus_type"`
	Value          *float64       `json:"value"`
	ValidFrom      *time.Time     `json:"valid_from"`
	ValidTo        *time.Time     `json:"valid_to"`
	Active         *bool          `json:"active"`
}

type ApplyRequest struct {
	Period period.Period
	// DriverCode narrows the recompute to one driver; empty means every
	// payment in the period.
	DriverCode string
}

// ApplyResult summarizes one recompute run.
type ApplyResult struct {
	Payments int    `json:"payments"`
	Bonuses  int    `json:"bonuses"`
	Period   string `json:"period"`
}

type Service interface {
	// Apply recomputes bonuses from scratch for the period: prior grants are
	// discarded and every active rule is re-evaluated, so running it twice
	// yields the same ledger.
	Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error)
	ListGrants(ctx context.Context, driverCode, periodKey string) ([]Bonus, error)

	CreateRule(ctx context.Context, req CreateRuleRequest) (*BonusRule, error)
	GetRule(ctx context.Context, id string) (*BonusRule, error)
	ListRules(ctx context.Context) ([]BonusRule, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*BonusRule, error)
	// DeleteRule refuses while grants referencing the rule exist.
	DeleteRule(ctx context.Context, id string) error
}

var (
	ErrRuleNotFound     = errors.New("bonus_rule_not_found")
	ErrInvalidRuleName  = errors.New("invalid_bonus_rule_name")
	ErrInvalidCondition = errors.New("invalid_bonus_condition")
	ErrInvalidBonusType = errors.New("invalid_bonus_type")
	ErrInvalidValue     = errors.New("invalid_bonus_value")
	ErrRuleInUse        = errors.New("bonus_rule_in_use")
)
