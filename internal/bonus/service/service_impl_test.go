package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/bonus/domain"
	bonusrepository "github.com/courierlog/payroll/internal/bonus/repository"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	deliveryrepository "github.com/courierlog/payroll/internal/delivery/repository"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	paymentrepository "github.com/courierlog/payroll/internal/payment/repository"
	"github.com/courierlog/payroll/internal/period"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
	p    period.Period
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&deliverydomain.Delivery{},
		&paymentdomain.Payment{},
		&domain.BonusRule{},
		&domain.Bonus{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Bonuses:    bonusrepository.Provide(),
		Deliveries: deliveryrepository.Provide(),
		Payments:   paymentrepository.Provide(),
	})

	p, err := period.Parse("2025-03-01_2025-03-15")
	require.NoError(t, err)
	return &testEnv{db: db, node: node, svc: svc, p: p}
}

// seedPayment books deliveries and the matching payment row for one driver:
// two standard deliveries at 3.50 and one express at 2.00.
func (e *testEnv) seedPayment(t *testing.T, driverCode string) {
	t.Helper()
	now := time.Now().UTC()
	rows := []*deliverydomain.Delivery{
		{ID: e.node.Generate(), DriverCode: driverCode, AWB: driverCode + "-AWB1", ServiceType: 0, Period: e.p.Key(), BaseValue: 3.50, TotalValue: 3.50, CreatedAt: now},
		{ID: e.node.Generate(), DriverCode: driverCode, AWB: driverCode + "-AWB2", ServiceType: 0, Period: e.p.Key(), BaseValue: 3.50, TotalValue: 3.50, CreatedAt: now},
		{ID: e.node.Generate(), DriverCode: driverCode, AWB: driverCode + "-AWB3", ServiceType: 9, Period: e.p.Key(), BaseValue: 2.00, TotalValue: 2.00, CreatedAt: now},
	}
	require.NoError(t, e.db.Create(rows).Error)

	payment := &paymentdomain.Payment{
		ID:              e.node.Generate(),
		DriverCode:      driverCode,
		Period:          e.p.Key(),
		StartDate:       e.p.Start,
		EndDate:         e.p.End,
		DeliveriesCount: 3,
		BaseValue:       9.00,
		Status:          paymentdomain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	payment.Recompute()
	require.NoError(t, e.db.Create(payment).Error)
}

func (e *testEnv) payment(t *testing.T, driverCode string) paymentdomain.Payment {
	t.Helper()
	var payment paymentdomain.Payment
	require.NoError(t, e.db.Where("driver_code = ? AND period = ?", driverCode, e.p.Key()).First(&payment).Error)
	return payment
}

func TestApply_FixedServiceTypeRule(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "standard delivery bonus",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "0",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
	})
	require.NoError(t, err)

	result, err := env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Payments)
	assert.Equal(t, 1, result.Bonuses)

	payment := env.payment(t, "D1")
	assert.InDelta(t, 2.00, payment.BonusValue, 1e-9)
	assert.InDelta(t, 11.00, payment.TotalValue, 1e-9)
}

func TestApply_PercentageRule(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "express uplift",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "9",
		BonusType:      domain.BonusPercentage,
		Value:          10,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)

	payment := env.payment(t, "D1")
	assert.InDelta(t, 0.20, payment.BonusValue, 1e-9)
	assert.InDelta(t, 9.20, payment.TotalValue, 1e-9)
}

func TestApply_VolumeRule(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "volume kicker",
		ConditionType:  domain.ConditionVolume,
		ConditionValue: "3",
		BonusType:      domain.BonusFixed,
		Value:          5.00,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)

	// The threshold being met pays the flat rule value once.
	payment := env.payment(t, "D1")
	assert.InDelta(t, 5.00, payment.BonusValue, 1e-9)
	assert.InDelta(t, 14.00, payment.TotalValue, 1e-9)
}

func TestApply_VolumePercentageRule(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "volume share",
		ConditionType:  domain.ConditionVolume,
		ConditionValue: "3",
		BonusType:      domain.BonusPercentage,
		Value:          10,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)

	// Ten percent of the period's base value.
	assert.InDelta(t, 0.90, env.payment(t, "D1").BonusValue, 1e-9)
}

func TestApply_VolumeRuleBelowThreshold(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "volume kicker",
		ConditionType:  domain.ConditionVolume,
		ConditionValue: "10",
		BonusType:      domain.BonusFixed,
		Value:          0.50,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)

	assert.Zero(t, env.payment(t, "D1").BonusValue)
}

func TestApply_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "standard delivery bonus",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "0",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
		require.NoError(t, err)
	}

	payment := env.payment(t, "D1")
	assert.InDelta(t, 2.00, payment.BonusValue, 1e-9)
	assert.InDelta(t, 11.00, payment.TotalValue, 1e-9)

	var grantCount int64
	require.NoError(t, env.db.Model(&domain.Bonus{}).Count(&grantCount).Error)
	assert.EqualValues(t, 1, grantCount)
}

func TestApply_SkipsMalformedCondition(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	// Bypass rule validation: legacy rows can hold junk.
	now := time.Now().UTC()
	require.NoError(t, env.db.Create(&domain.BonusRule{
		ID:             env.node.Generate(),
		Name:           "broken rule",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "not-a-number",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)

	result, err := env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Bonuses)
	assert.Zero(t, env.payment(t, "D1").BonusValue)
}

func TestApply_RespectsValidityWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	expired := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "february promo",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "0",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
		ValidTo:        &expired,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)
	assert.Zero(t, env.payment(t, "D1").BonusValue)
}

func TestApply_SingleDriverScope(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")
	env.seedPayment(t, "D2")

	_, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "standard delivery bonus",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "0",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
	})
	require.NoError(t, err)

	result, err := env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p, DriverCode: "D1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Payments)

	assert.InDelta(t, 2.00, env.payment(t, "D1").BonusValue, 1e-9)
	assert.Zero(t, env.payment(t, "D2").BonusValue)
}

func TestDeleteRule_RefusedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	env.seedPayment(t, "D1")

	rule, err := env.svc.CreateRule(context.Background(), domain.CreateRuleRequest{
		Name:           "standard delivery bonus",
		ConditionType:  domain.ConditionServiceType,
		ConditionValue: "0",
		BonusType:      domain.BonusFixed,
		Value:          1.00,
	})
	require.NoError(t, err)

	_, err = env.svc.Apply(context.Background(), domain.ApplyRequest{Period: env.p})
	require.NoError(t, err)

	err = env.svc.DeleteRule(context.Background(), rule.ID.String())
	assert.ErrorIs(t, err, domain.ErrRuleInUse)
}

func TestCreateRule_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		req  domain.CreateRuleRequest
		want error
	}{
		{"blank name", domain.CreateRuleRequest{ConditionType: domain.ConditionVolume, ConditionValue: "3", BonusType: domain.BonusFixed, Value: 1}, domain.ErrInvalidRuleName},
		{"bad condition type", domain.CreateRuleRequest{Name: "x", ConditionType: "weather", ConditionValue: "3", BonusType: domain.BonusFixed, Value: 1}, domain.ErrInvalidCondition},
		{"bad condition value", domain.CreateRuleRequest{Name: "x", ConditionType: domain.ConditionVolume, ConditionValue: "lots", BonusType: domain.BonusFixed, Value: 1}, domain.ErrInvalidCondition},
		{"bad bonus type", domain.CreateRuleRequest{Name: "x", ConditionType: domain.ConditionVolume, ConditionValue: "3", BonusType: "double", Value: 1}, domain.ErrInvalidBonusType},
		{"non-positive value", domain.CreateRuleRequest{Name: "x", ConditionType: domain.ConditionVolume, ConditionValue: "3", BonusType: domain.BonusFixed, Value: 0}, domain.ErrInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateRule(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
