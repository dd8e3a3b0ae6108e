package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository takes an explicit handle so callers can run inside their own
// transaction.
type Repository interface {
	// InsertBatch ignores rows whose (awb, period) is already booked.
	InsertBatch(ctx context.Context, db *gorm.DB, deliveries []*Delivery) error
	// FindBookedAWBs reports which of the given AWBs already have a delivery
	// row in the period.
	FindBookedAWBs(ctx context.Context, db *gorm.DB, period string, awbs []string) (map[string]bool, error)
	ListByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) ([]*Delivery, error)
	ListByDriverPeriodType(ctx context.Context, db *gorm.DB, driverCode, period string, serviceType int) ([]*Delivery, error)
	CountByPeriod(ctx context.Context, db *gorm.DB, period string) (int64, error)
	// ResetBonuses zeroes the bonus column and restores total to base for a
	// driver's period, ahead of a full bonus recompute.
	ResetBonuses(ctx context.Context, db *gorm.DB, driverCode, period string) error
	UpdateBonuses(ctx context.Context, db *gorm.DB, deliveries []*Delivery) error
}
