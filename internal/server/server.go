// Package server wires the HTTP surface over the payroll services.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/courierlog/payroll/internal/auth"
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
	"github.com/courierlog/payroll/internal/bonus"
	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
	"github.com/courierlog/payroll/internal/clock"
	"github.com/courierlog/payroll/internal/config"
	"github.com/courierlog/payroll/internal/delivery"
	"github.com/courierlog/payroll/internal/discount"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
	"github.com/courierlog/payroll/internal/driver"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
	"github.com/courierlog/payroll/internal/invoice"
	invoicedomain "github.com/courierlog/payroll/internal/invoice/domain"
	"github.com/courierlog/payroll/internal/manifest"
	manifestdomain "github.com/courierlog/payroll/internal/manifest/domain"
	"github.com/courierlog/payroll/internal/migration"
	obsmetrics "github.com/courierlog/payroll/internal/observability/metrics"
	"github.com/courierlog/payroll/internal/payment"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	"github.com/courierlog/payroll/internal/ratecard"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	clock.Module,
	fx.Provide(registerGin),
	auth.Module,
	driver.Module,
	ratecard.Module,
	delivery.Module,
	payment.Module,
	manifest.Module,
	bonus.Module,
	discount.Module,
	invoice.Module,
	migration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func registerGin(cfg config.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	clock       clock.Clock
	authsvc     authdomain.Service
	driverSvc   driverdomain.Service
	ratecardSvc ratecarddomain.Service
	paymentSvc  paymentdomain.Service
	manifestSvc manifestdomain.Service
	bonusSvc    bonusdomain.Service
	discountSvc discountdomain.Service
	invoiceSvc  invoicedomain.Service

	loginLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	Authsvc     authdomain.Service
	DriverSvc   driverdomain.Service
	RatecardSvc ratecarddomain.Service
	PaymentSvc  paymentdomain.Service
	ManifestSvc manifestdomain.Service
	BonusSvc    bonusdomain.Service
	DiscountSvc discountdomain.Service
	InvoiceSvc  invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		clock:       p.Clock,
		authsvc:     p.Authsvc,
		driverSvc:   p.DriverSvc,
		ratecardSvc: p.RatecardSvc,
		paymentSvc:  p.PaymentSvc,
		manifestSvc: p.ManifestSvc,
		bonusSvc:    p.BonusSvc,
		discountSvc: p.DiscountSvc,
		invoiceSvc:  p.InvoiceSvc,

		loginLimiter: newRateLimiter(5, time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")
	authGroup.POST("/login", s.Login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	admin := api.Group("", RequireRole(authdomain.RoleAdmin))
	{
		admin.POST("/users", s.CreateUser)

		admin.POST("/manifests", s.IngestManifest)
		admin.GET("/manifests", s.ListManifestUploads)

		admin.POST("/drivers", s.RegisterDriver)
		admin.GET("/drivers", s.ListDrivers)
		admin.PATCH("/drivers/:code", s.UpdateDriver)
		admin.POST("/drivers/roster", s.ImportDriverRoster)

		admin.GET("/service-types", s.ListServiceTypes)
		admin.POST("/service-types", s.CreateServiceType)
		admin.PATCH("/service-types/:code", s.UpdateServiceType)
		admin.DELETE("/service-types/:code", s.DeleteServiceType)

		admin.GET("/bonus-rules", s.ListBonusRules)
		admin.POST("/bonus-rules", s.CreateBonusRule)
		admin.PATCH("/bonus-rules/:id", s.UpdateBonusRule)
		admin.DELETE("/bonus-rules/:id", s.DeleteBonusRule)
		admin.POST("/bonuses/apply", s.ApplyBonuses)

		admin.GET("/discount-rules", s.ListDiscountRules)
		admin.POST("/discount-rules", s.CreateDiscountRule)
		admin.PATCH("/discount-rules/:id", s.UpdateDiscountRule)
		admin.DELETE("/discount-rules/:id", s.DeleteDiscountRule)
		admin.POST("/discounts", s.CreateDiscount)
		admin.POST("/discounts/process", s.ProcessInstallments)

		admin.GET("/payments", s.ListPayments)
		admin.PATCH("/payments/:id/status", s.UpdatePaymentStatus)
		admin.POST("/invoices/:id/review", s.ReviewInvoice)
		admin.GET("/invoices", s.ListInvoices)
	}

	// Drivers reach their own records; admins reach everyone's.
	api.GET("/drivers/:code/payments/:period", s.GetDriverPayment)
	api.GET("/drivers/:code/bonuses/:period", s.ListDriverBonuses)
	api.GET("/drivers/:code/discounts", s.ListDriverDiscounts)
	api.POST("/payments/:id/invoice", s.SubmitInvoice)
	api.GET("/invoices/:id/file", s.DownloadInvoice)
}
