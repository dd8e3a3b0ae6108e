package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/courierlog/payroll/internal/ratecard/domain"
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
	repo  repository.Repository[domain.ServiceType]

	mu    sync.RWMutex
	cache map[int]domain.ServiceType
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ratecard.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.ServiceType](p.DB),
	}
}

func (s *Service) Lookup(ctx context.Context, code int) (*domain.ServiceType, error) {
	s.mu.RLock()
	if s.cache != nil {
		if st, ok := s.cache[code]; ok {
			s.mu.RUnlock()
			return &st, nil
		}
		s.mu.RUnlock()
		return nil, domain.ErrUnknownServiceType
	}
	s.mu.RUnlock()

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.Lookup(ctx, code)
}

func (s *Service) List(ctx context.Context) ([]domain.ServiceType, error) {
	items, err := s.repo.Find(ctx, &domain.ServiceType{}, option.WithOrder("code asc"))
	if err != nil {
		return nil, err
	}
	types := make([]domain.ServiceType, 0, len(items))
	for _, item := range items {
		types = append(types, *item)
	}
	return types, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateServiceTypeRequest) (*domain.ServiceType, error) {
	if req.UnitRate < 0 {
		return nil, domain.ErrInvalidUnitRate
	}
	now := time.Now().UTC()
	st := &domain.ServiceType{
		ID:          s.genID.Generate(),
		Code:        req.Code,
		Description: strings.TrimSpace(req.Description),
		UnitRate:    req.UnitRate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrServiceTypeExists
		}
		return nil, err
	}
	s.invalidate()
	return st, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateServiceTypeRequest) (*domain.ServiceType, error) {
	existing, err := s.findByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.UnitRate != nil {
		if *req.UnitRate < 0 {
			return nil, domain.ErrInvalidUnitRate
		}
		updates["unit_rate"] = *req.UnitRate
	}
	if err := s.repo.Update(ctx, existing.ID.String(), updates); err != nil {
		return nil, err
	}
	s.invalidate()
	return s.findByCode(ctx, req.Code)
}

func (s *Service) Delete(ctx context.Context, code int) error {
	existing, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}

	var referenced int64
	if err := s.db.WithContext(ctx).
		Table("deliveries").
		Where("service_type = ?", code).
		Count(&referenced).Error; err != nil {
		return err
	}
	if referenced > 0 {
		return domain.ErrServiceTypeInUse
	}

	if err := s.repo.Delete(ctx, existing.ID.String()); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) findByCode(ctx context.Context, code int) (*domain.ServiceType, error) {
	var st domain.ServiceType
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownServiceType
		}
		return nil, err
	}
	return &st, nil
}

func (s *Service) refresh(ctx context.Context) error {
	items, err := s.repo.Find(ctx, &domain.ServiceType{})
	if err != nil {
		return err
	}
	cache := make(map[int]domain.ServiceType, len(items))
	for _, item := range items {
		cache[item.Code] = *item
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}
