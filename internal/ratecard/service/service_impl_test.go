package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	"github.com/courierlog/payroll/internal/ratecard/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ServiceType{}, &deliverydomain.Delivery{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node}), db
}

func TestLookup(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{
		Code:        9,
		Description: "Express delivery",
		UnitRate:    2.00,
	})
	require.NoError(t, err)

	st, err := svc.Lookup(context.Background(), 9)
	require.NoError(t, err)
	assert.InDelta(t, 2.00, st.UnitRate, 1e-9)

	_, err = svc.Lookup(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrUnknownServiceType)
}

func TestLookup_SeesUpdates(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 0, UnitRate: 3.50})
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), 0)
	require.NoError(t, err)

	newRate := 4.00
	_, err = svc.Update(context.Background(), domain.UpdateServiceTypeRequest{Code: 0, UnitRate: &newRate})
	require.NoError(t, err)

	st, err := svc.Lookup(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.00, st.UnitRate, 1e-9)
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 0, UnitRate: 3.50})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 0, UnitRate: 1.00})
	assert.ErrorIs(t, err, domain.ErrServiceTypeExists)
}

func TestCreate_NegativeRate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 0, UnitRate: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitRate)
}

func TestDelete_RefusedWhileReferenced(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 0, UnitRate: 3.50})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	require.NoError(t, db.Create(&deliverydomain.Delivery{
		ID:          node.Generate(),
		DriverCode:  "D1",
		AWB:         "AWB1",
		ServiceType: 0,
		Period:      "2025-03-01_2025-03-15",
		BaseValue:   3.50,
		TotalValue:  3.50,
		CreatedAt:   time.Now().UTC(),
	}).Error)

	assert.ErrorIs(t, svc.Delete(context.Background(), 0), domain.ErrServiceTypeInUse)
}

func TestDelete_Unreferenced(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateServiceTypeRequest{Code: 6, UnitRate: 0.50})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), 6))

	_, err = svc.Lookup(context.Background(), 6)
	assert.ErrorIs(t, err, domain.ErrUnknownServiceType)
}
