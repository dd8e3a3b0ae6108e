package domain

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/courierlog/payroll/internal/period"
)

type IngestRequest struct {
	FileName string
	Period   period.Period
	Reader   io.Reader
}

// IngestResult reports how many manifest rows landed and how many were
// skipped. Period echoes the key the rows were booked under.
type IngestResult struct {
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Period    string `json:"period"`
}

type Service interface {
	// Ingest parses a delivery manifest, books one delivery row per valid
	// line and folds the totals into each driver's payment for the period.
	// Uploads are additive: ingesting twice books the rows twice.
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)
	ListUploads(ctx context.Context) ([]Upload, error)
}

// MissingColumnsError names the required manifest columns absent from the
// header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing_manifest_columns: " + strings.Join(e.Columns, ", ")
}

var (
	ErrEmptyManifest   = errors.New("empty_manifest_file")
	ErrInvalidManifest = errors.New("invalid_manifest_file")
)
