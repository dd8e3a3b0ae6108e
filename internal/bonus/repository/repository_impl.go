package repository

import (
	"context"

	"github.com/courierlog/payroll/internal/bonus/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, bonuses []*domain.Bonus) error {
	if len(bonuses) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(bonuses).Error
}

func (r *repo) DeleteByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) error {
	return db.WithContext(ctx).
		Where("driver_code = ? AND period = ?", driverCode, period).
		Delete(&domain.Bonus{}).Error
}

func (r *repo) ListByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) ([]*domain.Bonus, error) {
	var bonuses []*domain.Bonus
	err := db.WithContext(ctx).
		Where("driver_code = ? AND period = ?", driverCode, period).
		Order("created_at asc, id asc").
		Find(&bonuses).Error
	return bonuses, err
}

func (r *repo) CountByRule(ctx context.Context, db *gorm.DB, ruleID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Bonus{}).
		Where("rule_id = ?", ruleID).
		Count(&count).Error
	return count, err
}
