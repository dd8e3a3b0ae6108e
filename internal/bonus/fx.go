package bonus

import (
	"github.com/courierlog/payroll/internal/bonus/repository"
	"github.com/courierlog/payroll/internal/bonus/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bonus.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
