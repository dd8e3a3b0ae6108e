package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/courierlog/payroll/internal/auth/domain"
	authservice "github.com/courierlog/payroll/internal/auth/service"
	bonusdomain "github.com/courierlog/payroll/internal/bonus/domain"
	bonusrepository "github.com/courierlog/payroll/internal/bonus/repository"
	bonusservice "github.com/courierlog/payroll/internal/bonus/service"
	"github.com/courierlog/payroll/internal/clock"
	"github.com/courierlog/payroll/internal/config"
	deliverydomain "github.com/courierlog/payroll/internal/delivery/domain"
	deliveryrepository "github.com/courierlog/payroll/internal/delivery/repository"
	discountdomain "github.com/courierlog/payroll/internal/discount/domain"
	discountservice "github.com/courierlog/payroll/internal/discount/service"
	driverdomain "github.com/courierlog/payroll/internal/driver/domain"
	driverservice "github.com/courierlog/payroll/internal/driver/service"
	invoicedomain "github.com/courierlog/payroll/internal/invoice/domain"
	invoiceservice "github.com/courierlog/payroll/internal/invoice/service"
	manifestdomain "github.com/courierlog/payroll/internal/manifest/domain"
	manifestservice "github.com/courierlog/payroll/internal/manifest/service"
	obsmetrics "github.com/courierlog/payroll/internal/observability/metrics"
	paymentdomain "github.com/courierlog/payroll/internal/payment/domain"
	paymentrepository "github.com/courierlog/payroll/internal/payment/repository"
	paymentservice "github.com/courierlog/payroll/internal/payment/service"
	ratecarddomain "github.com/courierlog/payroll/internal/ratecard/domain"
	ratecardservice "github.com/courierlog/payroll/internal/ratecard/service"
	"github.com/courierlog/payroll/internal/server"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const periodKey = "2025-03-01_2025-03-15"

type env struct {
	srv  *httptest.Server
	auth authdomain.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		AuthJWTSecret:   "e2e-secret",
		AuthTokenTTLMin: 60,
		InvoiceDir:      t.TempDir(),
	}
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	metrics := obsmetrics.NewMetrics()

	deliveries := deliveryrepository.Provide()
	payments := paymentrepository.Provide()

	authSvc := authservice.NewService(authservice.ServiceParam{
		Config: cfg, DB: db, Log: log, GenID: node, Clock: fake,
	})
	driverSvc := driverservice.NewService(driverservice.ServiceParam{
		DB: db, Log: log, GenID: node,
	})
	ratecardSvc := ratecardservice.NewService(ratecardservice.ServiceParam{
		DB: db, Log: log, GenID: node,
	})
	paymentSvc := paymentservice.NewService(paymentservice.ServiceParam{
		DB: db, Log: log, Repo: payments,
	})
	manifestSvc := manifestservice.NewService(manifestservice.ServiceParam{
		DB: db, Log: log, GenID: node,
		Ratecard: ratecardSvc, Drivers: driverSvc,
		Deliveries: deliveries, Payments: payments,
		Metrics: metrics,
	})
	bonusSvc := bonusservice.NewService(bonusservice.ServiceParam{
		DB: db, Log: log, GenID: node,
		Bonuses: bonusrepository.Provide(), Deliveries: deliveries, Payments: payments,
		Metrics: metrics,
	})
	discountSvc := discountservice.NewService(discountservice.ServiceParam{
		DB: db, Log: log, GenID: node, Payments: payments, Metrics: metrics,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		Config: cfg, DB: db, Log: log, GenID: node, Payments: payments, Metrics: metrics,
	})

	engine := server.NewEngine(cfg, metrics)
	server.NewServer(server.ServerParams{
		Gin: engine, Cfg: cfg, Log: log, Clock: fake,
		Authsvc:     authSvc,
		DriverSvc:   driverSvc,
		RatecardSvc: ratecardSvc,
		PaymentSvc:  paymentSvc,
		ManifestSvc: manifestSvc,
		BonusSvc:    bonusSvc,
		DiscountSvc: discountSvc,
		InvoiceSvc:  invoiceSvc,
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &env{srv: srv, auth: authSvc}
}

func (e *env) request(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) doJSON(t *testing.T, method, path, token string, payload any, out any) int {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	resp := e.request(t, method, path, token, body, "application/json")
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *env) upload(t *testing.T, path, token, fieldFile, content string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fieldFile)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp := e.request(t, http.MethodPost, path, token, &buf, w.FormDataContentType())
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (e *env) login(t *testing.T, username, password string) string {
	t.Helper()
	var resp authdomain.LoginResponse
	status := e.doJSON(t, http.MethodPost, "/auth/login", "", authdomain.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestPayrollFlow(t *testing.T) {
	env := newEnv(t)
	ctx := t.Context()
	require.NoError(t, env.auth.EnsureAdmin(ctx, "admin", "bootstrap-pass"))
	admin := env.login(t, "admin", "bootstrap-pass")

	// Rate card.
	for _, body := range []map[string]any{
		{"code": 0, "description": "standard", "unit_rate": 3.50},
		{"code": 9, "description": "express", "unit_rate": 2.00},
	} {
		status := env.doJSON(t, http.MethodPost, "/api/v1/service-types", admin, body, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	// Manifest for the first March half: D1 earns 2x3.50 + 1x2.00.
	manifest := strings.Join([]string{
		"driver_id;awb;service_type;weight;delivery_date",
		"D1;AWB001;0;1,2;2025-03-03",
		"D1;AWB002;0;0,8;2025-03-04",
		"D1;AWB003;9;2,0;2025-03-05",
	}, "\n")
	resp, data := env.upload(t, "/api/v1/manifests?period="+periodKey, admin, "march.csv", manifest)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var ingest manifestdomain.IngestResult
	require.NoError(t, json.Unmarshal(data, &ingest))
	assert.Equal(t, 3, ingest.Processed)
	assert.Equal(t, 0, ingest.Errors)

	// Driver self-access account.
	status := env.doJSON(t, http.MethodPost, "/api/v1/users", admin, authdomain.CreateUserRequest{
		Username:   "d1",
		Password:   "driver-pass-1",
		Role:       authdomain.RoleDriver,
		DriverCode: "D1",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	driver := env.login(t, "d1", "driver-pass-1")

	var payment paymentdomain.Payment
	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D1/payments/"+periodKey, driver, nil, &payment)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, payment.DeliveriesCount)
	assert.InDelta(t, 9.00, payment.BaseValue, 1e-9)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)

	// A driver token only reaches its own records.
	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D2/payments/"+periodKey, driver, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status = env.doJSON(t, http.MethodGet, "/api/v1/payments", driver, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D1/payments/"+periodKey, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Bonus: 1.00 per standard delivery.
	status = env.doJSON(t, http.MethodPost, "/api/v1/bonus-rules", admin, map[string]any{
		"name":            "standard delivery bonus",
		"condition_type":  "service_type",
		"condition_value": "0",
		"bonus_type":      "fixed",
		"value":           1.00,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	var applied bonusdomain.ApplyResult
	status = env.doJSON(t, http.MethodPost, "/api/v1/bonuses/apply?period="+periodKey, admin, nil, &applied)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, applied.Bonuses)

	// Discount: 30.00 over 3 installments, first charged immediately.
	var discountRule discountdomain.DiscountRule
	status = env.doJSON(t, http.MethodPost, "/api/v1/discount-rules", admin, map[string]any{
		"name":             "equipment damage",
		"discount_type":    "loss",
		"max_value":        100.00,
		"max_installments": 4,
	}, &discountRule)
	require.Equal(t, http.StatusCreated, status)
	status = env.doJSON(t, http.MethodPost, "/api/v1/discounts?period="+periodKey, admin, map[string]any{
		"rule_id":      discountRule.ID.String(),
		"driver_code":  "D1",
		"description":  "broken scanner",
		"total_value":  30.00,
		"installments": 3,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D1/payments/"+periodKey, driver, nil, &payment)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 2.00, payment.BonusValue, 1e-9)
	assert.InDelta(t, 10.00, payment.DiscountValue, 1e-9)
	assert.InDelta(t, 1.00, payment.TotalValue, 1e-9)

	// The driver submits an invoice for the period.
	resp, data = env.upload(t, "/api/v1/payments/"+payment.ID.String()+"/invoice", driver, "invoice.pdf", "%PDF-1.4 e2e")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var invoice invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(data, &invoice))

	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D1/payments/"+periodKey, driver, nil, &payment)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, paymentdomain.StatusInvoiceReceived, payment.Status)

	// Back-office download and approval.
	resp = env.request(t, http.MethodGet, "/api/v1/invoices/"+invoice.ID.String()+"/file", admin, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	downloaded, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "%PDF-1.4 e2e", string(downloaded))

	status = env.doJSON(t, http.MethodPost, "/api/v1/invoices/"+invoice.ID.String()+"/review", admin, map[string]any{
		"approve": true,
		"notes":   "checked against manifest",
	}, nil)
	require.Equal(t, http.StatusOK, status)

	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D1/payments/"+periodKey, driver, nil, &payment)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, paymentdomain.StatusApproved, payment.Status)
}

func TestRejectionFlow(t *testing.T) {
	env := newEnv(t)
	ctx := t.Context()
	require.NoError(t, env.auth.EnsureAdmin(ctx, "admin", "bootstrap-pass"))
	admin := env.login(t, "admin", "bootstrap-pass")

	status := env.doJSON(t, http.MethodPost, "/api/v1/service-types", admin, map[string]any{
		"code": 0, "unit_rate": 3.50,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	manifest := "driver_id,awb,service_type\nD7,AWB100,0\n"
	resp, data := env.upload(t, "/api/v1/manifests?period="+periodKey, admin, "m.csv", manifest)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var payment paymentdomain.Payment
	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D7/payments/"+periodKey, admin, nil, &payment)
	require.Equal(t, http.StatusOK, status)

	resp, data = env.upload(t, "/api/v1/payments/"+payment.ID.String()+"/invoice", admin, "invoice.jpg", "not really a jpeg")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var invoice invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(data, &invoice))

	status = env.doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/review", invoice.ID), admin, map[string]any{
		"approve": false,
		"notes":   "amount does not match",
	}, nil)
	require.Equal(t, http.StatusOK, status)

	// Rejection reopens the payment for a fresh submission.
	status = env.doJSON(t, http.MethodGet, "/api/v1/drivers/D7/payments/"+periodKey, admin, nil, &payment)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.Nil(t, payment.InvoiceID)

	resp, data = env.upload(t, "/api/v1/payments/"+payment.ID.String()+"/invoice", admin, "fixed.pdf", "%PDF-1.4 fixed")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
}
