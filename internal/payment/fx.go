package payment

import (
	"github.com/courierlog/payroll/internal/payment/repository"
	"github.com/courierlog/payroll/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
