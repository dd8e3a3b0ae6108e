package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/discount/domain"
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

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Payments paymentdomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	rules     repository.Repository[domain.DiscountRule]
	discounts repository.Repository[domain.Discount]
	payments  paymentdomain.Repository
	metrics   *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("discount.service"),
		genID:     p.GenID,
		rules:     repository.ProvideStore[domain.DiscountRule](p.DB),
		discounts: repository.ProvideStore[domain.Discount](p.DB),
		payments:  p.Payments,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDiscountRequest) (*domain.Discount, error) {
	driverCode := strings.TrimSpace(req.DriverCode)
	if driverCode == "" {
		return nil, paymentdomain.ErrInvalidDriverCode
	}
	if req.TotalValue <= 0 {
		return nil, domain.ErrInvalidTotalValue
	}
	if req.Installments <= 0 {
		return nil, domain.ErrInvalidInstallments
	}

	rule, err := s.findRule(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return nil, domain.ErrRuleInactive
	}
	if rule.MaxValue != nil && req.TotalValue > *rule.MaxValue {
		return nil, domain.ErrValueExceedsCap
	}
	if req.Installments > rule.MaxInstallments {
		return nil, domain.ErrTooManyInstallments
	}

	now := time.Now().UTC()
	discount := &domain.Discount{
		ID:                 s.genID.Generate(),
		RuleID:             rule.ID,
		DriverCode:         driverCode,
		Description:        strings.TrimSpace(req.Description),
		TotalValue:         req.TotalValue,
		Installments:       req.Installments,
		InstallmentValue:   req.TotalValue / float64(req.Installments),
		CurrentInstallment: 1,
		Status:             domain.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !req.Period.IsZero() {
			payment, err := s.payments.FindByDriverPeriod(ctx, tx, driverCode, req.Period.Key())
			if err != nil {
				return err
			}
			if payment != nil {
				if err := s.charge(ctx, tx, discount, payment); err != nil {
					return err
				}
			}
		}
		return s.discounts.WithTrx(tx).Create(ctx, discount)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("discount created",
		zap.String("discount_id", discount.ID.String()),
		zap.String("driver_code", driverCode),
		zap.Float64("total_value", discount.TotalValue),
		zap.Int("installments", discount.Installments),
		zap.String("status", string(discount.Status)),
	)
	return discount, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Discount, error) {
	discountID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrDiscountNotFound
	}
	discount, err := s.discounts.FindOne(ctx, &domain.Discount{ID: discountID})
	if err != nil {
		return nil, err
	}
	if discount == nil {
		return nil, domain.ErrDiscountNotFound
	}
	return discount, nil
}

func (s *Service) List(ctx context.Context, driverCode string) ([]domain.Discount, error) {
	filter := &domain.Discount{}
	if code := strings.TrimSpace(driverCode); code != "" {
		filter.DriverCode = code
	}
	items, err := s.discounts.Find(ctx, filter, option.WithOrder("created_at asc"))
	if err != nil {
		return nil, err
	}
	discounts := make([]domain.Discount, 0, len(items))
	for _, item := range items {
		discounts = append(discounts, *item)
	}
	return discounts, nil
}

func (s *Service) ProcessInstallments(ctx context.Context, p period.Period) (domain.ProcessResult, error) {
	result := domain.ProcessResult{Period: p.Key()}
	if p.IsZero() {
		return result, paymentdomain.ErrInvalidPeriod
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.discounts.WithTrx(tx)
		open, err := store.Find(ctx, &domain.Discount{}, option.WithOrder("created_at asc"))
		if err != nil {
			return err
		}
		for _, discount := range open {
			if discount.Status == domain.StatusCompleted {
				continue
			}
			if discount.LastPeriod == p.Key() {
				// Already charged this period.
				continue
			}
			payment, err := s.payments.FindByDriverPeriod(ctx, tx, discount.DriverCode, p.Key())
			if err != nil {
				return err
			}
			if payment == nil {
				continue
			}
			if err := s.charge(ctx, tx, discount, payment); err != nil {
				return err
			}
			if err := store.BatchUpdate(ctx, []*domain.Discount{discount}); err != nil {
				return err
			}
			result.Charged++
			if discount.Status == domain.StatusCompleted {
				result.Completed++
			}
		}
		return nil
	})
	if err != nil {
		return domain.ProcessResult{Period: result.Period}, err
	}

	s.metrics.RecordInstallments(result.Charged)
	s.log.Info("installments processed",
		zap.String("period", result.Period),
		zap.Int("charged", result.Charged),
		zap.Int("completed", result.Completed),
	)
	return result, nil
}

// charge books one installment against a payment and advances the discount.
func (s *Service) charge(ctx context.Context, tx *gorm.DB, discount *domain.Discount, payment *paymentdomain.Payment) error {
	now := time.Now().UTC()

	discount.DiscountValue += discount.InstallmentValue
	discount.CurrentInstallment++
	discount.LastPeriod = payment.Period
	if discount.CurrentInstallment > discount.Installments {
		discount.Status = domain.StatusCompleted
	} else {
		discount.Status = domain.StatusInProgress
	}
	discount.UpdatedAt = now

	payment.DiscountValue += discount.InstallmentValue
	payment.Recompute()
	payment.UpdatedAt = now
	if err := payment.CheckInvariant(); err != nil {
		return err
	}
	return s.payments.Save(ctx, tx, payment)
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (*domain.DiscountRule, error) {
	now := time.Now().UTC()
	rule := &domain.DiscountRule{
		ID:              s.genID.Generate(),
		Name:            strings.TrimSpace(req.Name),
		Type:            req.Type,
		MaxValue:        req.MaxValue,
		MaxInstallments: req.MaxInstallments,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.DiscountRule, error) {
	items, err := s.rules.Find(ctx, &domain.DiscountRule{}, option.WithOrder("created_at asc"))
	if err != nil {
		return nil, err
	}
	rules := make([]domain.DiscountRule, 0, len(items))
	for _, item := range items {
		rules = append(rules, *item)
	}
	return rules, nil
}

func (s *Service) UpdateRule(ctx context.Context, req domain.UpdateRuleRequest) (*domain.DiscountRule, error) {
	rule, err := s.findRule(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		rule.Type = *req.Type
	}
	if req.MaxValue != nil {
		rule.MaxValue = req.MaxValue
	}
	if req.MaxInstallments != nil {
		rule.MaxInstallments = *req.MaxInstallments
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := s.rules.BatchUpdate(ctx, []*domain.DiscountRule{rule}); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.discounts.Count(ctx, &domain.Discount{RuleID: rule.ID})
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrRuleInUse
	}
	return s.rules.Delete(ctx, rule.ID.String())
}

func (s *Service) findRule(ctx context.Context, id string) (*domain.DiscountRule, error) {
	ruleID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrRuleNotFound
	}
	rule, err := s.rules.FindOne(ctx, &domain.DiscountRule{ID: ruleID})
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func validateRule(rule *domain.DiscountRule) error {
	if rule.Name == "" {
		return domain.ErrInvalidRuleName
	}
	switch rule.Type {
	case domain.RuleLoss, domain.RuleAdvance, domain.RuleLoan:
	default:
		return domain.ErrInvalidRuleType
	}
	if rule.MaxValue != nil && *rule.MaxValue <= 0 {
		return domain.ErrInvalidRuleCaps
	}
	if rule.MaxInstallments <= 0 {
		return domain.ErrInvalidRuleCaps
	}
	return nil
}
