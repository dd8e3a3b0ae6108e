package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/driver/domain"
	"github.com/courierlog/payroll/pkg/db"
	"github.com/courierlog/payroll/pkg/db/option"
	"github.com/courierlog/payroll/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.Driver]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("driver.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Driver](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, req domain.CreateDriverRequest) (*domain.Driver, error) {
	code := strings.TrimSpace(req.DriverCode)
	if code == "" {
		return nil, domain.ErrInvalidDriverCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidDriverName
	}

	now := time.Now().UTC()
	driver := &domain.Driver{
		ID:         s.genID.Generate(),
		DriverCode: code,
		Name:       name,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, driver); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDriverExists
		}
		return nil, err
	}
	return driver, nil
}

func (s *Service) EnsureByCode(ctx context.Context, code string) (*domain.Driver, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidDriverCode
	}

	existing, err := s.repo.FindOne(ctx, &domain.Driver{DriverCode: code})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	driver := &domain.Driver{
		ID:         s.genID.Generate(),
		DriverCode: code,
		Name:       domain.PlaceholderName(code),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, driver); err != nil {
		// Lost a race with a concurrent ingestion; the row exists now.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindOne(ctx, &domain.Driver{DriverCode: code})
		}
		return nil, err
	}
	return driver, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Driver, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrInvalidDriverCode
	}
	driver, err := s.repo.FindOne(ctx, &domain.Driver{DriverCode: code})
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, domain.ErrDriverNotFound
	}
	return driver, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDriversRequest) ([]domain.Driver, error) {
	filter := &domain.Driver{}
	if req.ActiveOnly {
		filter.Active = true
	}
	items, err := s.repo.Find(ctx, filter, option.WithOrder("driver_code asc"))
	if err != nil {
		return nil, err
	}
	drivers := make([]domain.Driver, 0, len(items))
	for _, item := range items {
		drivers = append(drivers, *item)
	}
	return drivers, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateDriverRequest) (*domain.Driver, error) {
	driver, err := s.GetByCode(ctx, req.DriverCode)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidDriverName
		}
		updates["name"] = name
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if err := s.repo.Update(ctx, driver.ID.String(), updates); err != nil {
		return nil, err
	}
	return s.repo.FindOne(ctx, &domain.Driver{ID: driver.ID})
}

// ImportRoster accepts the carrier's driver listing export. The first row is
// a header; driver_code and name columns are required. Rows with a blank
// code are counted as errors and skipped.
func (s *Service) ImportRoster(ctx context.Context, r io.Reader) (domain.RosterImportResult, error) {
	var result domain.RosterImportResult

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return result, domain.ErrInvalidRoster
	}
	codeIdx, nameIdx := -1, -1
	for i, col := range header {
		switch normalizeHeader(col) {
		case "driver_code", "driver_id":
			codeIdx = i
		case "name", "driver_name":
			nameIdx = i
		}
	}
	if codeIdx < 0 || nameIdx < 0 {
		return result, domain.ErrInvalidRoster
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				result.Errors++
				continue
			}
			if codeIdx >= len(record) || nameIdx >= len(record) {
				result.Errors++
				continue
			}
			code := strings.TrimSpace(record[codeIdx])
			name := strings.TrimSpace(record[nameIdx])
			if code == "" || name == "" {
				result.Errors++
				continue
			}

			existing, err := repo.FindOne(ctx, &domain.Driver{DriverCode: code})
			if err != nil {
				return err
			}
			if existing == nil {
				now := time.Now().UTC()
				if err := repo.Create(ctx, &domain.Driver{
					ID:         s.genID.Generate(),
					DriverCode: code,
					Name:       name,
					Active:     true,
					CreatedAt:  now,
					UpdatedAt:  now,
				}); err != nil {
					return err
				}
				result.Created++
				continue
			}
			if existing.Name != name {
				if err := repo.Update(ctx, existing.ID.String(), map[string]any{
					"name":       name,
					"updated_at": time.Now().UTC(),
				}); err != nil {
					return err
				}
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return domain.RosterImportResult{}, err
	}

	s.log.Info("roster imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, " ", "_")
}
