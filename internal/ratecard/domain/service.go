package domain

import (
	"context"
	"errors"
)

type CreateServiceTypeRequest struct {
	Code        int     `json:"code"`
	Description string  `json:"description"`
	UnitRate    float64 `json:"unit_rate"`
}

type UpdateServiceTypeRequest struct {
	Code        int      `json:"-"`
	Description *string  `json:"description"`
	UnitRate    *float64 `json:"unit_rate"`
}

type Service interface {
	// Lookup resolves a service-type code to its rate. Unknown codes are an
	// error, never a zero rate.
	Lookup(ctx context.Context, code int) (*ServiceType, error)
	List(ctx context.Context) ([]ServiceType, error)
	Create(ctx context.Context, req CreateServiceTypeRequest) (*ServiceType, error)
	Update(ctx context.Context, req UpdateServiceTypeRequest) (*ServiceType, error)
	Delete(ctx context.Context, code int) error
}

var (
	ErrUnknownServiceType = errors.New("unknown_service_type")
	ErrInvalidUnitRate    = errors.New("invalid_unit_rate")
	ErrServiceTypeExists  = errors.New("service_type_exists")
	ErrServiceTypeInUse   = errors.New("service_type_in_use")
)
