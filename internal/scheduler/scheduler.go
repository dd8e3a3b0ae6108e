// Package scheduler closes out payroll periods in the background: once a new
// half-month begins, bonuses for the finished period are recomputed and open
// discount installments are charged against it.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
	"github.com/courierlog/payroll/internal/clock"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
	"github.com/courierlog/payroll/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler requires log, clock, bonus and discount services")

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	BonusSvc    bonusdomain.Service
	DiscountSvc discountdomain.Service
	Config      Config `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	bonusSvc    bonusdomain.Service
	discountSvc discountdomain.Service

	mu         sync.Mutex
	lastClosed string
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BonusSvc == nil || p.DiscountSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		bonusSvc:    p.BonusSvc,
		discountSvc: p.DiscountSvc,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	// Catch up immediately: re-running a close is safe because the bonus
	// recompute is idempotent and installments are charged once per period.
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick closes the most recently finished period, at most once.
func (s *Scheduler) Tick(ctx context.Context) {
	current := period.ForDate(s.clock.Now())
	previous := period.ForDate(current.Start.AddDate(0, 0, -1))

	s.mu.Lock()
	done := s.lastClosed == previous.Key()
	s.mu.Unlock()
	if done {
		return
	}

	log := s.log.With(zap.String("period", previous.Key()))

	bonusResult, err := s.bonusSvc.Apply(ctx, bonusdomain.ApplyRequest{Period: previous})
	if err != nil {
		log.Error("period close: bonus recompute failed", zap.Error(err))
		return
	}
	discountResult, err := s.discountSvc.ProcessInstallments(ctx, previous)
	if err != nil {
		log.Error("period close: installment run failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastClosed = previous.Key()
	s.mu.Unlock()

	log.Info("period closed",
		zap.Int("payments", bonusResult.Payments),
		zap.Int("bonuses", bonusResult.Bonuses),
		zap.Int("installments_charged", discountResult.Charged),
		zap.Int("discounts_completed", discountResult.Completed),
	)
}
