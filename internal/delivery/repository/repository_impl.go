package repository

import (
	"context"

	"github.com/courierlog/payroll/internal/delivery/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, deliveries []*domain.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "awb"}, {Name: "period"}},
			DoNothing: true,
		}).
		Create(deliveries).Error
}

func (r *repo) FindBookedAWBs(ctx context.Context, db *gorm.DB, period string, awbs []string) (map[string]bool, error) {
	booked := map[string]bool{}
	if len(awbs) == 0 {
		return booked, nil
	}
	var found []string
	err := db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("period = ? AND awb IN ?", period, awbs).
		Pluck("awb", &found).Error
	if err != nil {
		return nil, err
	}
	for _, awb := range found {
		booked[awb] = true
	}
	return booked, nil
}

func (r *repo) ListByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) ([]*domain.Delivery, error) {
	var deliveries []*domain.Delivery
	err := db.WithContext(ctx).
		Where("driver_code = ? AND period = ?", driverCode, period).
		Order("created_at asc, id asc").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repo) ListByDriverPeriodType(ctx context.Context, db *gorm.DB, driverCode, period string, serviceType int) ([]*domain.Delivery, error) {
	var deliveries []*domain.Delivery
	err := db.WithContext(ctx).
		Where("driver_code = ? AND period = ? AND service_type = ?", driverCode, period, serviceType).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repo) ResetBonuses(ctx context.Context, db *gorm.DB, driverCode, period string) error {
	return db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("driver_code = ? AND period = ?", driverCode, period).
		Updates(map[string]any{
			"bonus_value": 0,
			"total_value": gorm.Expr("base_value"),
		}).Error
}

func (r *repo) UpdateBonuses(ctx context.Context, db *gorm.DB, deliveries []*domain.Delivery) error {
	for _, delivery := range deliveries {
		err := db.WithContext(ctx).
			Model(&domain.Delivery{}).
			Where("id = ?", delivery.ID).
			Updates(map[string]any{
				"bonus_value": delivery.BonusValue,
				"total_value": delivery.TotalValue,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) CountByPeriod(ctx context.Context, db *gorm.DB, period string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("period = ?", period).
		Count(&count).Error
	return count, err
}
