package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository takes an explicit handle so the engine can recompute a whole
// period inside one transaction.
type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, bonuses []*Bonus) error
	DeleteByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) error
	ListByDriverPeriod(ctx context.Context, db *gorm.DB, driverCode, period string) ([]*Bonus, error)
	CountByRule(ctx context.Context, db *gorm.DB, ruleID string) (int64, error)
}
