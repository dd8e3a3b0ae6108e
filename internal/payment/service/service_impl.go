package service

import (
	"context"
	"strings"
	"time"

	"github.com/courierlog/payroll/internal/payment/domain"
	"github.com/courierlog/payroll/internal/period"
	"github.com/courierlog/payroll/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("payment.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, driverCode, periodKey string) (*domain.Payment, error) {
	driverCode = strings.TrimSpace(driverCode)
	if driverCode == "" {
		return nil, domain.ErrInvalidDriverCode
	}
	if _, err := period.Parse(periodKey); err != nil {
		return nil, domain.ErrInvalidPeriod
	}

	payment, err := s.repo.FindByDriverPeriod(ctx, s.db, driverCode, periodKey)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentsRequest) (domain.ListPaymentsResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListPaymentFilter{
		DriverCode: strings.TrimSpace(req.DriverCode),
		Period:     strings.TrimSpace(req.Period),
		Status:     domain.Status(strings.TrimSpace(req.Status)),
	}
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListPaymentsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(p *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID: p.ID.String(),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		payments = append(payments, *item)
	}

	resp := domain.ListPaymentsResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Payment, error) {
	switch req.Status {
	case domain.StatusPending, domain.StatusInvoiceReceived, domain.StatusApproved, domain.StatusRejected:
	default:
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrPaymentNotFound
		}
		if !domain.ValidTransition(payment.Status, req.Status) {
			return domain.ErrInvalidTransition
		}

		payment.Status = req.Status
		if req.Status == domain.StatusPending {
			// Back in pending means no live invoice is attached.
			payment.InvoiceID = nil
		}
		payment.UpdatedAt = time.Now().UTC()
		if err := s.repo.Save(ctx, tx, payment); err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment status updated",
		zap.String("payment_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}
