package domain

import (
	"context"
	"errors"
	"io"
)

type SubmitRequest struct {
	PaymentID   string
	Number      string
	Value       float64
	FileName    string
	ContentType string
	Reader      io.Reader
}

type ReviewRequest struct {
	InvoiceID string `json:"-"`
	Approve   bool   `json:"approve"`
	Notes     string `json:"notes"`
}

type Service interface {
	// Submit stores the uploaded document and moves the backing payment to
	// invoice_received.
	Submit(ctx context.Context, req SubmitRequest) (*Invoice, error)
	// Review settles a submitted invoice. Rejection sends the payment back to
	// pending and detaches the invoice so the driver can submit again.
	Review(ctx context.Context, req ReviewRequest) (*Invoice, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, driverCode string) ([]Invoice, error)
	// Open returns the stored document for download; the caller closes it.
	Open(ctx context.Context, id string) (io.ReadCloser, *Invoice, error)
}

var (
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrUnsupportedFileType = errors.New("unsupported_invoice_file_type")
	ErrAlreadyReviewed     = errors.New("invoice_already_reviewed")
	ErrFileMissing         = errors.New("invoice_file_missing")
)
