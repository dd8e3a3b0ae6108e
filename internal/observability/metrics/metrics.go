// Package metrics exposes prometheus counters for the payroll pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Provide(NewMetrics)

type Metrics struct {
	registry *prometheus.Registry

	manifestRows   *prometheus.CounterVec
	bonusesApplied prometheus.Counter
	installments   prometheus.Counter
	invoiceReviews *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		manifestRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payroll",
			Name:      "manifest_rows_total",
			Help:      "Manifest rows seen during ingestion, by outcome.",
		}, []string{"outcome"}),
		bonusesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "payroll",
			Name:      "bonuses_applied_total",
			Help:      "Bonus line items materialized by the rule engine.",
		}),
		installments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "payroll",
			Name:      "discount_installments_total",
			Help:      "Discount installments charged against payments.",
		}),
		invoiceReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payroll",
			Name:      "invoice_reviews_total",
			Help:      "Invoice review decisions, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordManifestRows(processed, skipped int) {
	if m == nil {
		return
	}
	m.manifestRows.WithLabelValues("processed").Add(float64(processed))
	m.manifestRows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) RecordBonusesApplied(count int) {
	if m == nil {
		return
	}
	m.bonusesApplied.Add(float64(count))
}

func (m *Metrics) RecordInstallments(count int) {
	if m == nil {
		return
	}
	m.installments.Add(float64(count))
}

func (m *Metrics) RecordInvoiceReview(outcome string) {
	if m == nil {
		return
	}
	m.invoiceReviews.WithLabelValues(outcome).Inc()
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
