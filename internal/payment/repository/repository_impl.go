package repository

import (
	"context"
	"errors"

	"github.com/courierlog/payroll/internal/payment/domain"
	"github.com/courierlog/payroll/pkg/db/option"
	"github.com/courierlog/payroll/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("driver_code = ? AND period = ?", driverCode, period).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListByPeriod(ctx context.Context, db *gorm.DB, period string) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Where("period = ?", period).
		Order("driver_code asc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.DriverCode != "" {
		stmt = stmt.Where("driver_code = ?", filter.DriverCode)
	}
	if filter.Period != "" {
		stmt = stmt.Where("period = ?", filter.Period)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	// Newest first. The cursor filters on id, so the order must match it.
	var payments []*domain.Payment
	err := stmt.
		Order("id desc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}
