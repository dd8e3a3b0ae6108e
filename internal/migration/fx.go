package migration

import (
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
	"github.com/courierlog/payroll/internal/config"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
	invoicedomain "github.com/courierlog/payroll/internal/invoice/domain"
	manifestdomain "github.com/courierlog/payroll/internal/manifest/domain"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	"github.com/courierlog/payroll/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, rates *config.RatesConfigHolder) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql installs rely on gorm's schema sync.
			if err := conn.AutoMigrate(
				&driverdomain.Driver{},
				&ratecarddomain.ServiceType{},
				&deliverydomain.Delivery{},
				&paymentdomain.Payment{},
				&manifestdomain.Upload{},
				&bonusdomain.BonusRule{},
				&bonusdomain.Bonus{},
				&discountdomain.DiscountRule{},
				&discountdomain.Discount{},
				&invoicedomain.Invoice{},
				&authdomain.User{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultRates(conn, rates.Get()); err != nil {
			return err
		}
		return seed.EnsureAdminUser(conn, cfg.BootstrapAdmin, cfg.BootstrapAdminPass)
	}),
)
