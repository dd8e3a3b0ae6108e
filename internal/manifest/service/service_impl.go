package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
	"github.com/courierlog/payroll/internal/manifest/domain"
	obsmetrics "github.com/courierlog/payroll/internal/observability/metrics"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	"github.com/courierlog/payroll/pkg/db/option"
	"github.com/courierlog/payroll/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Ratecard   ratecarddomain.Service
	Drivers    driverdomain.Service
	Deliveries deliverydomain.Repository
	Payments   paymentdomain.Repository
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	ratecard   ratecarddomain.Service
	drivers    driverdomain.Service
	deliveries deliverydomain.Repository
	payments   paymentdomain.Repository
	uploads    repository.Repository[domain.Upload]
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("manifest.service"),
		genID:      p.GenID,
		ratecard:   p.Ratecard,
		drivers:    p.Drivers,
		deliveries: p.Deliveries,
		payments:   p.Payments,
		uploads:    repository.ProvideStore[domain.Upload](p.DB),
		metrics:    p.Metrics,
	}
}

// driverAggregate folds the manifest rows of one driver before they hit the
// payment ledger.
type driverAggregate struct {
	count     int
	baseValue float64
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error) {
	result := domain.IngestResult{Period: req.Period.Key()}
	if req.Period.IsZero() {
		return result, paymentdomain.ErrInvalidPeriod
	}

	reader, err := newManifestReader(req.Reader)
	if err != nil {
		return result, err
	}
	cols, err := reader.readHeader()
	if err != nil {
		return result, err
	}

	var (
		rows      []*deliverydomain.Delivery
		rowLines  = map[string]int{}
		seenAWBs  = map[string]bool{}
		rowErrors []string
		lineNo    = 1
	)
	for {
		record, err := reader.read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			result.Errors++
			rowErrors = appendRowError(rowErrors, lineNo, "unreadable row")
			continue
		}

		row, reason := cols.parse(record)
		if reason != "" {
			result.Errors++
			rowErrors = appendRowError(rowErrors, lineNo, reason)
			continue
		}
		if seenAWBs[row.awb] {
			result.Errors++
			rowErrors = appendRowError(rowErrors, lineNo,
				fmt.Sprintf("awb %s repeated in file", row.awb))
			continue
		}

		rate, err := s.ratecard.Lookup(ctx, row.serviceType)
		if err != nil {
			if errors.Is(err, ratecarddomain.ErrUnknownServiceType) {
				result.Errors++
				rowErrors = appendRowError(rowErrors, lineNo,
					fmt.Sprintf("unknown service type %d", row.serviceType))
				continue
			}
			return domain.IngestResult{Period: result.Period}, err
		}

		rows = append(rows, &deliverydomain.Delivery{
			ID:                s.genID.Generate(),
			DriverCode:        row.driverCode,
			AWB:               row.awb,
			Sender:            row.sender,
			ServiceType:       row.serviceType,
			Weight:            row.weight,
			Status:            row.status,
			StatusDescription: row.statusDescription,
			DeliveryDate:      row.deliveryDate,
			Period:            req.Period.Key(),
			BaseValue:         rate.UnitRate,
			TotalValue:        rate.UnitRate,
			CreatedAt:         time.Now().UTC(),
		})
		seenAWBs[row.awb] = true
		rowLines[row.awb] = lineNo
		result.Processed++
	}

	if result.Processed == 0 && result.Errors == 0 {
		return result, domain.ErrEmptyManifest
	}

	// Driver stubs are committed before the booking transaction; a stub that
	// outlives a failed ingest is harmless.
	driverCodes := map[string]bool{}
	for _, row := range rows {
		driverCodes[row.DriverCode] = true
	}
	for code := range driverCodes {
		if _, err := s.drivers.EnsureByCode(ctx, code); err != nil {
			return domain.IngestResult{Period: result.Period}, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An AWB is booked at most once per period. Rows from a re-uploaded
		// manifest are dropped here so the payment aggregates stay additive.
		awbs := make([]string, 0, len(rows))
		for _, row := range rows {
			awbs = append(awbs, row.AWB)
		}
		booked, err := s.deliveries.FindBookedAWBs(ctx, tx, req.Period.Key(), awbs)
		if err != nil {
			return err
		}

		fresh := make([]*deliverydomain.Delivery, 0, len(rows))
		aggregates := map[string]*driverAggregate{}
		for _, row := range rows {
			if booked[row.AWB] {
				result.Processed--
				result.Errors++
				rowErrors = appendRowError(rowErrors, rowLines[row.AWB],
					fmt.Sprintf("awb %s already booked", row.AWB))
				continue
			}
			fresh = append(fresh, row)
			agg := aggregates[row.DriverCode]
			if agg == nil {
				agg = &driverAggregate{}
				aggregates[row.DriverCode] = agg
			}
			agg.count++
			agg.baseValue += row.BaseValue
		}

		if err := s.deliveries.InsertBatch(ctx, tx, fresh); err != nil {
			return err
		}
		for code, agg := range aggregates {
			if err := s.bookAggregate(ctx, tx, code, req.Period.Key(), req.Period.Start, req.Period.End, agg); err != nil {
				return err
			}
		}

		upload := &domain.Upload{
			ID:        s.genID.Generate(),
			FileName:  req.FileName,
			Period:    req.Period.Key(),
			Processed: result.Processed,
			Errors:    result.Errors,
			CreatedAt: time.Now().UTC(),
		}
		if len(rowErrors) > 0 {
			upload.Result = datatypes.JSONMap{"row_errors": rowErrors}
		}
		return s.uploads.WithTrx(tx).Create(ctx, upload)
	})
	if err != nil {
		return domain.IngestResult{Period: result.Period}, err
	}

	s.metrics.RecordManifestRows(result.Processed, result.Errors)
	s.log.Info("manifest ingested",
		zap.String("file", req.FileName),
		zap.String("period", result.Period),
		zap.Int("processed", result.Processed),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (s *Service) bookAggregate(ctx context.Context, tx *gorm.DB, driverCode, periodKey string, start, end time.Time, agg *driverAggregate) error {
	now := time.Now().UTC()
	payment, err := s.payments.FindByDriverPeriod(ctx, tx, driverCode, periodKey)
	if err != nil {
		return err
	}
	if payment == nil {
		payment = &paymentdomain.Payment{
			ID:         s.genID.Generate(),
			DriverCode: driverCode,
			Period:     periodKey,
			StartDate:  start,
			EndDate:    end,
			Status:     paymentdomain.StatusPending,
			CreatedAt:  now,
		}
	}
	payment.DeliveriesCount += agg.count
	payment.BaseValue += agg.baseValue
	payment.Recompute()
	payment.UpdatedAt = now
	if err := payment.CheckInvariant(); err != nil {
		return err
	}
	return s.payments.Save(ctx, tx, payment)
}

func (s *Service) ListUploads(ctx context.Context) ([]domain.Upload, error) {
	items, err := s.uploads.Find(ctx, &domain.Upload{}, option.WithOrder("created_at desc"))
	if err != nil {
		return nil, err
	}
	uploads := make([]domain.Upload, 0, len(items))
	for _, item := range items {
		uploads = append(uploads, *item)
	}
	return uploads, nil
}

const maxRecordedRowErrors = 50

func appendRowError(errs []string, line int, reason string) []string {
	if len(errs) >= maxRecordedRowErrors {
		return errs
	}
	return append(errs, fmt.Sprintf("line %d: %s", line, reason))
}

// manifestReader wraps csv.Reader with delimiter sniffing: carrier exports
// arrive both semicolon- and comma-separated.
type manifestReader struct {
	csv *csv.Reader
}

func newManifestReader(r io.Reader) (*manifestReader, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, domain.ErrInvalidManifest
	}
	if len(head) == 0 {
		return nil, domain.ErrEmptyManifest
	}

	firstLine := string(head)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}

	reader := csv.NewReader(buffered)
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return &manifestReader{csv: reader}, nil
}

func (r *manifestReader) read() ([]string, error) { return r.csv.Read() }

// columnIndex maps header names to record positions.
type columnIndex struct {
	driverCode        int
	awb               int
	serviceType       int
	weight            int
	status            int
	statusDescription int
	deliveryDate      int
	sender            int
}

func (r *manifestReader) readHeader() (*columnIndex, error) {
	header, err := r.csv.Read()
	if err != nil {
		return nil, domain.ErrEmptyManifest
	}

	cols := &columnIndex{
		driverCode: -1, awb: -1, serviceType: -1,
		weight: -1, status: -1, statusDescription: -1,
		deliveryDate: -1, sender: -1,
	}
	for i, col := range header {
		switch normalizeHeader(col) {
		case "driver_id", "driver_code":
			cols.driverCode = i
		case "awb", "tracking_number":
			cols.awb = i
		case "service_type", "type_of_service":
			cols.serviceType = i
		case "weight":
			cols.weight = i
		case "status":
			cols.status = i
		case "status_description", "status_desc":
			cols.statusDescription = i
		case "delivery_date", "date":
			cols.deliveryDate = i
		case "sender", "shipper":
			cols.sender = i
		}
	}

	var missing []string
	if cols.driverCode < 0 {
		missing = append(missing, "driver_id")
	}
	if cols.awb < 0 {
		missing = append(missing, "awb")
	}
	if cols.serviceType < 0 {
		missing = append(missing, "service_type")
	}
	if len(missing) > 0 {
		return nil, &domain.MissingColumnsError{Columns: missing}
	}
	return cols, nil
}

type manifestRow struct {
	driverCode        string
	awb               string
	serviceType       int
	weight            float64
	status            string
	statusDescription string
	deliveryDate      *time.Time
	sender            string
}

// parse coerces one record. A non-empty reason means the row is skipped.
func (c *columnIndex) parse(record []string) (manifestRow, string) {
	var row manifestRow

	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row.driverCode = field(c.driverCode)
	if row.driverCode == "" {
		return row, "missing driver id"
	}
	row.awb = field(c.awb)
	if row.awb == "" {
		return row, "missing awb"
	}

	rawType := field(c.serviceType)
	serviceType, err := strconv.Atoi(rawType)
	if err != nil {
		return row, fmt.Sprintf("service type %q is not an integer", rawType)
	}
	row.serviceType = serviceType

	if raw := field(c.weight); raw != "" {
		// Exports from the carrier use a comma decimal separator.
		if weight, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil {
			row.weight = weight
		}
	}
	row.status = field(c.status)
	row.statusDescription = field(c.statusDescription)
	row.sender = field(c.sender)
	if raw := field(c.deliveryDate); raw != "" {
		row.deliveryDate = parseDeliveryDate(raw)
	}
	return row, ""
}

func parseDeliveryDate(raw string) *time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, " ", "_")
}
