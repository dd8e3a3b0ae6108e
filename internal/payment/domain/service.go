package domain

import (
	"context"
	"errors"

	"github.com/courierlog/payroll/pkg/db/pagination"
)

type ListPaymentsRequest struct {
	DriverCode string `form:"driver_code"`
	Period     string `form:"period"`
	Status     string `form:"status"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type ListPaymentsResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type UpdateStatusRequest struct {
	PaymentID string `json:"-"`
	Status    Status `json:"status"`
}

type Service interface {
	// Get returns the ledger row for one driver and period key.
	Get(ctx context.Context, driverCode, periodKey string) (*Payment, error)
	GetByID(ctx context.Context, id string) (*Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) (ListPaymentsResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Payment, error)
}

var (
	ErrPaymentNotFound   = errors.New("payment_not_found")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInconsistentTotal = errors.New("inconsistent_payment_total")
	ErrInvalidDriverCode = errors.New("invalid_driver_code")
)
