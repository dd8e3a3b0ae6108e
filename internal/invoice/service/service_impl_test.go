package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/config"
	"github.com/courierlog/payroll/internal/invoice/domain"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	paymentrepository "github.com/courierlog/payroll/internal/payment/repository"
	"github.com/courierlog/payroll/internal/period"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	dir  string
	svc  domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&paymentdomain.Payment{}, &domain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	dir := t.TempDir()
	svc := NewService(ServiceParam{
		Config:   config.Config{InvoiceDir: dir},
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Payments: paymentrepository.Provide(),
	})
	return &testEnv{db: db, node: node, dir: dir, svc: svc}
}

func (e *testEnv) seedPayment(t *testing.T) *paymentdomain.Payment {
	t.Helper()
	p, err := period.Parse("2025-03-01_2025-03-15")
	require.NoError(t, err)
	now := time.Now().UTC()
	payment := &paymentdomain.Payment{
		ID:              e.node.Generate(),
		DriverCode:      "D1",
		Period:          p.Key(),
		StartDate:       p.Start,
		EndDate:         p.End,
		DeliveriesCount: 2,
		BaseValue:       7.00,
		Status:          paymentdomain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	payment.Recompute()
	require.NoError(t, e.db.Create(payment).Error)
	return payment
}

func (e *testEnv) payment(t *testing.T, id snowflake.ID) paymentdomain.Payment {
	t.Helper()
	var payment paymentdomain.Payment
	require.NoError(t, e.db.First(&payment, "id = ?", id).Error)
	return payment
}

func (e *testEnv) submit(t *testing.T, paymentID snowflake.ID) *domain.Invoice {
	t.Helper()
	invoice, err := e.svc.Submit(context.Background(), domain.SubmitRequest{
		PaymentID:   paymentID.String(),
		FileName:    "march-invoice.pdf",
		ContentType: "application/pdf",
		Reader:      strings.NewReader("%PDF-1.4 test"),
	})
	require.NoError(t, err)
	return invoice
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)

	invoice := env.submit(t, seeded.ID)
	assert.Equal(t, domain.StatusSubmitted, invoice.Status)
	assert.Equal(t, "march-invoice.pdf", invoice.FileName)

	payment := env.payment(t, seeded.ID)
	assert.Equal(t, paymentdomain.StatusInvoiceReceived, payment.Status)
	require.NotNil(t, payment.InvoiceID)
	assert.Equal(t, invoice.ID, *payment.InvoiceID)

	stored, err := os.ReadFile(filepath.Join(env.dir, invoice.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(stored))
}

func TestSubmit_UnsupportedFileType(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)

	_, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		PaymentID: seeded.ID.String(),
		FileName:  "invoice.txt",
		Reader:    strings.NewReader("plain text"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestSubmit_RefusedAfterApproval(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)

	invoice := env.submit(t, seeded.ID)
	_, err := env.svc.Review(context.Background(), domain.ReviewRequest{
		InvoiceID: invoice.ID.String(),
		Approve:   true,
	})
	require.NoError(t, err)

	_, err = env.svc.Submit(context.Background(), domain.SubmitRequest{
		PaymentID: seeded.ID.String(),
		FileName:  "again.pdf",
		Reader:    strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidTransition)
}

func TestReview_Approve(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)
	invoice := env.submit(t, seeded.ID)

	reviewed, err := env.svc.Review(context.Background(), domain.ReviewRequest{
		InvoiceID: invoice.ID.String(),
		Approve:   true,
		Notes:     "all good",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, reviewed.Status)
	assert.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, paymentdomain.StatusApproved, env.payment(t, seeded.ID).Status)
}

func TestReview_RejectResetsPayment(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)
	invoice := env.submit(t, seeded.ID)

	reviewed, err := env.svc.Review(context.Background(), domain.ReviewRequest{
		InvoiceID: invoice.ID.String(),
		Approve:   false,
		Notes:     "wrong amount",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, reviewed.Status)

	payment := env.payment(t, seeded.ID)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.Nil(t, payment.InvoiceID)

	// A rejected submission can be replaced with a fresh one.
	again := env.submit(t, seeded.ID)
	assert.Equal(t, domain.StatusSubmitted, again.Status)
}

func TestReview_AlreadyReviewed(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)
	invoice := env.submit(t, seeded.ID)

	_, err := env.svc.Review(context.Background(), domain.ReviewRequest{
		InvoiceID: invoice.ID.String(),
		Approve:   true,
	})
	require.NoError(t, err)

	_, err = env.svc.Review(context.Background(), domain.ReviewRequest{
		InvoiceID: invoice.ID.String(),
		Approve:   false,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
}

func TestOpen(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)
	invoice := env.submit(t, seeded.ID)

	f, got, err := env.svc.Open(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, invoice.ID, got.ID)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
}

func TestOpen_FileMissing(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPayment(t)
	invoice := env.submit(t, seeded.ID)

	require.NoError(t, os.Remove(filepath.Join(env.dir, invoice.StoredName)))
	_, _, err := env.svc.Open(context.Background(), invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrFileMissing)
}
