package ratecard

import (
	"github.com/courierlog/payroll/internal/ratecard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratecard.service",
	fx.Provide(service.NewService),
)
