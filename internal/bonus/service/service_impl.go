package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/bonus/domain"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	obsmetrics "github.com/courierlog/payroll/internal/observability/metrics"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	"github.com/courierlog/payroll/internal/period"
	"github.com/courierlog/payroll/pkg/db/option"
	"github.com/courierlog/payroll/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Bonuses    domain.Repository
	Deliveries deliverydomain.Repository
	Payments   paymentdomain.Repository
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	rules      repository.Repository[domain.BonusRule]
	bonuses    domain.Repository
	deliveries deliverydomain.Repository
	payments   paymentdomain.Repository
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bonus.service"),
		genID:      p.GenID,
		rules:      repository.ProvideStore[domain.BonusRule](p.DB),
		bonuses:    p.Bonuses,
		deliveries: p.Deliveries,
		payments:   p.Payments,
		metrics:    p.Metrics,
	}
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyResult, error) {
	result := domain.ApplyResult{Period: req.Period.Key()}
	if req.Period.IsZero() {
		return result, paymentdomain.ErrInvalidPeriod
	}

	allRules, err := s.rules.Find(ctx, &domain.BonusRule{}, option.WithOrder("created_at asc"))
	if err != nil {
		return result, err
	}
	rules := make([]*domain.BonusRule, 0, len(allRules))
	for _, rule := range allRules {
		if rule.AppliesTo(req.Period.Start, req.Period.End) {
			rules = append(rules, rule)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments, err := s.targetPayments(ctx, tx, req)
		if err != nil {
			return err
		}
		for _, payment := range payments {
			granted, err := s.recompute(ctx, tx, payment, rules)
			if err != nil {
				return err
			}
			result.Payments++
			result.Bonuses += granted
		}
		return nil
	})
	if err != nil {
		return domain.ApplyResult{Period: result.Period}, err
	}

	s.metrics.RecordBonusesApplied(result.Bonuses)
	s.log.Info("bonuses applied",
		zap.String("period", result.Period),
		zap.Int("payments", result.Payments),
		zap.Int("bonuses", result.Bonuses),
	)
	return result, nil
}

func (s *Service) targetPayments(ctx context.Context, tx *gorm.DB, req domain.ApplyRequest) ([]*paymentdomain.Payment, error) {
	if code := strings.TrimSpace(req.DriverCode); code != "" {
		payment, err := s.payments.FindByDriverPeriod(ctx, tx, code, req.Period.Key())
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, paymentdomain.ErrPaymentNotFound
		}
		return []*paymentdomain.Payment{payment}, nil
	}
	return s.payments.ListByPeriod(ctx, tx, req.Period.Key())
}

// recompute drops the driver's prior grants and re-evaluates every rule
// against the period's deliveries.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment, rules []*domain.BonusRule) (int, error) {
	if err := s.bonuses.DeleteByDriverPeriod(ctx, tx, payment.DriverCode, payment.Period); err != nil {
		return 0, err
	}
	if err := s.deliveries.ResetBonuses(ctx, tx, payment.DriverCode, payment.Period); err != nil {
		return 0, err
	}

	deliveries, err := s.deliveries.ListByDriverPeriod(ctx, tx, payment.DriverCode, payment.Period)
	if err != nil {
		return 0, err
	}
	for _, d := range deliveries {
		d.BonusValue = 0
		d.TotalValue = d.BaseValue
	}

	var (
		grants []*domain.Bonus
		total  float64
		now    = time.Now().UTC()
	)
	for _, rule := range rules {
		code, err := rule.ConditionCode()
		if err != nil {
			s.log.Warn("skipping rule with malformed condition",
				zap.String("rule_id", rule.ID.String()),
				zap.String("condition_value", rule.ConditionValue),
			)
			continue
		}

		var matched []*deliverydomain.Delivery
		switch rule.ConditionType {
		case domain.ConditionServiceType:
			for _, d := range deliveries {
				if d.ServiceType == code {
					matched = append(matched, d)
				}
			}
		case domain.ConditionVolume:
			if len(deliveries) >= code {
				matched = deliveries
			}
		default:
			s.log.Warn("skipping rule with unknown condition type",
				zap.String("rule_id", rule.ID.String()),
				zap.String("condition_type", string(rule.ConditionType)),
			)
			continue
		}
		if len(matched) == 0 {
			continue
		}

		var amount float64
		if rule.ConditionType == domain.ConditionVolume && rule.BonusType == domain.BonusFixed {
			// Meeting the volume threshold pays a flat amount, not one per
			// delivery, so nothing is attributed to individual rows.
			amount = rule.Value
		} else {
			for _, d := range matched {
				inc := rule.Value
				if rule.BonusType == domain.BonusPercentage {
					inc = d.BaseValue * rule.Value / 100
				}
				d.BonusValue += inc
				d.TotalValue = d.BaseValue + d.BonusValue
				amount += inc
			}
		}
		grants = append(grants, &domain.Bonus{
			ID:          s.genID.Generate(),
			RuleID:      rule.ID,
			DriverCode:  payment.DriverCode,
			Period:      payment.Period,
			Description: fmt.Sprintf("%s (%d deliveries)", rule.Name, len(matched)),
			Value:       amount,
			CreatedAt:   now,
		})
		total += amount
	}

	var changed []*deliverydomain.Delivery
	for _, d := range deliveries {
		if d.BonusValue != 0 {
			changed = append(changed, d)
		}
	}
	if err := s.deliveries.UpdateBonuses(ctx, tx, changed); err != nil {
		return 0, err
	}
	if err := s.bonuses.InsertBatch(ctx, tx, grants); err != nil {
		return 0, err
	}

	payment.BonusValue = total
	payment.Recompute()
	payment.UpdatedAt = now
	if err := payment.CheckInvariant(); err != nil {
		return 0, err
	}
	if err := s.payments.Save(ctx, tx, payment); err != nil {
		return 0, err
	}
	return len(grants), nil
}

func (s *Service) ListGrants(ctx context.Context, driverCode, periodKey string) ([]domain.Bonus, error) {
	driverCode = strings.TrimSpace(driverCode)
	if driverCode == "" {
		return nil, paymentdomain.ErrInvalidDriverCode
	}
	if _, err := period.Parse(periodKey); err != nil {
		return nil, paymentdomain.ErrInvalidPeriod
	}
	items, err := s.bonuses.ListByDriverPeriod(ctx, s.db, driverCode, periodKey)
	if err != nil {
		return nil, err
	}
	grants := make([]domain.Bonus, 0, len(items))
	for _, item := range items {
		grants = append(grants, *item)
	}
	return grants, nil
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (*domain.BonusRule, error) {
	rule := &domain.BonusRule{
		ID:             s.genID.Generate(),
		Name:           strings.TrimSpace(req.Name),
		ConditionType:  req.ConditionType,
		ConditionValue: strings.TrimSpace(req.ConditionValue),
		BonusType:      req.BonusType,
		Value:          req.Value,
		ValidFrom:      req.ValidFrom,
		ValidTo:        req.ValidTo,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*domain.BonusRule, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.BonusRule, error) {
	items, err := s.rules.Find(ctx, &domain.BonusRule{}, option.WithOrder("created_at asc"))
	if err != nil {
		return nil, err
	}
	rules := make([]domain.BonusRule, 0, len(items))
	for _, item := range items {
		rules = append(rules, *item)
	}
	return rules, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (*domain.BonusRule, error) {
	rule, err := s.findRule(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.ConditionType != nil {
		rule.ConditionType = *req.ConditionType
	}
	if req.ConditionValue != nil {
		rule.ConditionValue = strings.TrimSpace(*req.ConditionValue)
	}
	if req.BonusType != nil {
		rule.BonusType = *req.BonusType
	}
	if req.Value != nil {
		rule.Value = *req.Value
	}
	if req.ValidFrom != nil {
		rule.ValidFrom = req.ValidFrom
	}
	if req.ValidTo != nil {
		rule.ValidTo = req.ValidTo
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.BatchUpdate(ctx, []*domain.BonusRule{rule}); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.bonuses.CountByRule(ctx, s.db, rule.ID.String())
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrRuleInUse
	}
	return s.rules.Delete(ctx, rule.ID.String())
}

func (s *Service) findRule(ctx context.Context, id string) (*domain.BonusRule, error) {
	ruleID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrRuleNotFound
	}
	rule, err := s.rules.FindOne(ctx, &domain.BonusRule{ID: ruleID})
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func validateRule(rule *domain.BonusRule) error {
	if rule.Name == "" {
		return domain.ErrInvalidRuleName
	}
	switch rule.ConditionType {
	case domain.ConditionServiceType, domain.ConditionVolume:
	default:
		return domain.ErrInvalidCondition
	}
	if _, err := rule.ConditionCode(); err != nil {
		return domain.ErrInvalidCondition
	}
	switch rule.BonusType {
	case domain.BonusFixed, domain.BonusPercentage:
	default:
		return domain.ErrInvalidBonusType
	}
	if rule.Value <= 0 {
		return domain.ErrInvalidValue
	}
	if rule.ValidFrom != nil && rule.ValidTo != nil && rule.ValidTo.Before(*rule.ValidFrom) {
		return domain.ErrInvalidCondition
	}
	return nil
}
