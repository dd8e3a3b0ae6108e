// Package repository provides a generic gorm-backed store shared by the domain services.
package repository

import (
	"context"

	"github.com/courierlog/payroll/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the slice of gorm the services need for their lookup tables:
// struct-filtered reads plus id-keyed writes. Queries that do not fit a
// struct filter live in a dedicated per-domain repository instead.
type Repository[T any] interface {
	// WithTrx returns a view of the store bound to the given transaction.
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns (nil, nil) when no row matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, updates any) error
	BatchUpdate(ctx context.Context, resources []*T) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
}
