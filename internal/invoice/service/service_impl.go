package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/config"
	"github.com/courierlog/payroll/internal/invoice/domain"
	obsmetrics "github.com/courierlog/payroll/internal/observability/metrics"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	"github.com/courierlog/payroll/pkg/db/option"
	"github.com/courierlog/payroll/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type ServiceParam struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Payments paymentdomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	dir      string
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	invoices repository.Repository[domain.Invoice]
	payments paymentdomain.Repository
	metrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		dir:      p.Config.InvoiceDir,
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		invoices: repository.ProvideStore[domain.Invoice](p.DB),
		payments: p.Payments,
		metrics:  p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Invoice, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExtensions[ext] {
		return nil, domain.ErrUnsupportedFileType
	}

	payment, err := s.payments.FindByID(ctx, s.db, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if !paymentdomain.ValidTransition(payment.Status, paymentdomain.StatusInvoiceReceived) {
		return nil, paymentdomain.ErrInvalidTransition
	}

	storedName := uuid.NewString() + ext
	if err := s.store(storedName, req.Reader); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invoice := &domain.Invoice{
		ID:          s.genID.Generate(),
		PaymentID:   payment.ID,
		DriverCode:  payment.DriverCode,
		Period:      payment.Period,
		Number:      strings.TrimSpace(req.Number),
		Value:       req.Value,
		FileName:    filepath.Base(req.FileName),
		StoredName:  storedName,
		ContentType: req.ContentType,
		Status:      domain.StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoices.WithTrx(tx).Create(ctx, invoice); err != nil {
			return err
		}
		payment.Status = paymentdomain.StatusInvoiceReceived
		payment.InvoiceID = &invoice.ID
		payment.UpdatedAt = now
		return s.payments.Save(ctx, tx, payment)
	})
	if err != nil {
		// Do not leave an orphaned file behind a failed booking.
		_ = os.Remove(filepath.Join(s.dir, storedName))
		return nil, err
	}

	s.log.Info("invoice submitted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("driver_code", payment.DriverCode),
	)
	return invoice, nil
}

func (s *Service) store(name string, r io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}

func (s *Service) Review(ctx context.Context, req domain.ReviewRequest) (*domain.Invoice, error) {
	invoice, err := s.find(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != domain.StatusSubmitted {
		return nil, domain.ErrAlreadyReviewed
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.payments.FindByID(ctx, tx, invoice.PaymentID.String())
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}

		target := paymentdomain.StatusApproved
		invoice.Status = domain.StatusApproved
		if !req.Approve {
			target = paymentdomain.StatusRejected
			invoice.Status = domain.StatusRejected
		}
		if !paymentdomain.ValidTransition(payment.Status, target) {
			return paymentdomain.ErrInvalidTransition
		}

		payment.Status = target
		payment.UpdatedAt = now
		if !req.Approve {
			// A rejected payment goes straight back to pending with no
			// invoice attached, ready for resubmission.
			payment.Status = paymentdomain.StatusPending
			payment.InvoiceID = nil
		}
		if err := s.payments.Save(ctx, tx, payment); err != nil {
			return err
		}

		invoice.Notes = strings.TrimSpace(req.Notes)
		invoice.ReviewedAt = &now
		invoice.UpdatedAt = now
		return s.invoices.WithTrx(tx).BatchUpdate(ctx, []*domain.Invoice{invoice})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceReview(string(invoice.Status))
	s.log.Info("invoice reviewed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(invoice.Status)),
	)
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.find(ctx, id)
}

func (s *Service) List(ctx context.Context, driverCode string) ([]domain.Invoice, error) {
	filter := &domain.Invoice{}
	if code := strings.TrimSpace(driverCode); code != "" {
		filter.DriverCode = code
	}
	items, err := s.invoices.Find(ctx, filter, option.WithOrder("created_at desc"))
	if err != nil {
		return nil, err
	}
	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}
	return invoices, nil
}

func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, *domain.Invoice, error) {
	invoice, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, invoice.StoredName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.ErrFileMissing
		}
		return nil, nil, err
	}
	return f, invoice, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvoiceNotFound
	}
	invoice, err := s.invoices.FindOne(ctx, &domain.Invoice{ID: invoiceID})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}
