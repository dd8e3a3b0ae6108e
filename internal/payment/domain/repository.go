package domain

import (
	"context"

	"github.com/courierlog/payroll/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPaymentFilter struct {
	DriverCode string
	Period     string
	Status     Status
}

// Repository takes an explicit handle so the manifest, bonus, and discount
// engines can mutate payments inside their own transactions.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) (*Payment, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Payment, error)
	ListByPeriod(ctx context.Context, db *gorm.DB, period string) ([]*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)
	Save(ctx context.Context, db *gorm.DB, payment *Payment) error
}
