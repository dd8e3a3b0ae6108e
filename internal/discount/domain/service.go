package domain

import (
	"context"
	"errors"

	"github.com/courierlog/payroll/internal/period"
)

type CreateRuleRequest struct {
	Name            string   `json:"name"`
	Type            RuleType `json:"discount_type"`
	MaxValue        *float64 `json:"max_value"`
	MaxInstallments int      `json:"max_installments"`
}

type UpdateRuleRequest struct {
	RuleID          string    `json:"-"`
	Name            *string   `json:"name"`
	Type            *RuleType `json:"discount_type"`
	MaxValue        *float64  `json:"max_value"`
	MaxInstallments *int      `json:"max_installments"`
	Active          *bool     `json:"active"`
}

type CreateDiscountRequest struct {
	RuleID       string  `json:"rule_id"`
	DriverCode   string  `json:"driver_code"`
	Description  string  `json:"description"`
	TotalValue   float64 `json:"total_value"`
	Installments int     `json:"installments"`
	// Period is the period the first installment should land in, when the
	// driver already has a payment there.
	Period period.Period `json:"-"`
}

// ProcessResult summarizes one installment run over a period.
type ProcessResult struct {
	Charged   int    `json:"charged"`
	Completed int    `json:"completed"`
	Period    string `json:"period"`
}

type Service interface {
	// Create opens a discount under a rule's caps and, when the driver has a
	// payment for the given period, charges the first installment at once.
	Create(ctx context.Context, req CreateDiscountRequest) (*Discount, error)
	Get(ctx context.Context, id string) (*Discount, error)
	List(ctx context.Context, driverCode string) ([]Discount, error)
	// ProcessInstallments charges one installment of every open discount
	// against the driver's payment for the period. Discounts whose driver has
	// no payment there, or that were already charged for the period, are left
	// untouched.
	ProcessInstallments(ctx context.Context, p period.Period) (ProcessResult, error)

	CreateRule(ctx context.Context, req CreateRuleRequest) (*DiscountRule, error)
	ListRules(ctx context.Context) ([]DiscountRule, error)
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*DiscountRule, error)
	DeleteRule(ctx context.Context, id string) error
}

var (
	ErrRuleNotFound        = errors.New("discount_rule_not_found")
	ErrRuleInactive        = errors.New("discount_rule_inactive")
	ErrRuleInUse           = errors.New("discount_rule_in_use")
	ErrDiscountNotFound    = errors.New("discount_not_found")
	ErrInvalidRuleName     = errors.New("invalid_discount_rule_name")
	ErrInvalidRuleType     = errors.New("invalid_discount_rule_type")
	ErrInvalidRuleCaps     = errors.New("invalid_discount_rule_caps")
	ErrValueExceedsCap     = errors.New("discount_value_exceeds_cap")
	ErrTooManyInstallments = errors.New("discount_installments_exceed_cap")
	ErrInvalidTotalValue   = errors.New("invalid_discount_total")
	ErrInvalidInstallments = errors.New("invalid_discount_installments")
)
