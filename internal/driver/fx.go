package driver

import (
	"github.com/courierlog/payroll/internal/driver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("driver.service",
	fx.Provide(service.NewService),
)
