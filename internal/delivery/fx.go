package delivery

import (
	"github.com/courierlog/payroll/internal/delivery/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery.repository",
	fx.Provide(repository.Provide),
)
