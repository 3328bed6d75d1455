package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry, the scrape server, and the
// collectors exposed by this service. Components receive *Metrics and record
// directly into the typed collectors.
type Metrics struct {
	Server      *http.Server
	Registry    *prometheus.Registry
	serviceName string

	// GatewayInvocations counts AI gateway invocations by action and outcome
	// (ok, timeout, rejected, unavailable, denied, circuit_open).
	GatewayInvocations *prometheus.CounterVec

	// GatewayLatency tracks AI gateway invocation latency per action.
	GatewayLatency *prometheus.HistogramVec

	// BudgetDenials counts admission denials by reason (rate_limited, budget_exhausted).
	BudgetDenials *prometheus.CounterVec

	// BudgetMonthlyCost reports the cost accrued in the current billing month.
	BudgetMonthlyCost prometheus.Gauge

	// BreakerState reports the circuit state per downstream target
	// (0 closed, 1 open, 2 half_open).
	BreakerState *prometheus.GaugeVec

	// HTTPRequests counts retrieval API requests by route, method and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPLatency tracks retrieval API latency per route.
	HTTPLatency *prometheus.HistogramVec
}

// NewMetrics constructs the registry, registers the service collectors and
// prepares (but does not start) the scrape server.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	m := &Metrics{
		Registry:    registry,
		serviceName: cfg.ServiceName,

		GatewayInvocations: createCounterVec(
			"gateway_invocations_total",
			"AI gateway invocations by action and outcome.",
			[]string{"action", "outcome"},
		),
		GatewayLatency: createHistogramVec(
			"gateway_invocation_duration_seconds",
			"AI gateway invocation latency by action.",
			[]string{"action"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		),
		BudgetDenials: createCounterVec(
			"budget_denials_total",
			"Admission denials by reason.",
			[]string{"reason"},
		),
		BudgetMonthlyCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "budget_monthly_cost_usd",
			Help: "Cost accrued in the current billing month.",
		}),
		BreakerState: createGaugeVec(
			"circuit_breaker_state",
			"Circuit breaker state per target (0 closed, 1 open, 2 half_open).",
			[]string{"target"},
		),
		HTTPRequests: createCounterVec(
			"http_requests_total",
			"Retrieval API requests by route, method and status code.",
			[]string{"route", "method", "code"},
		),
		HTTPLatency: createHistogramVec(
			"http_request_duration_seconds",
			"Retrieval API latency by route.",
			[]string{"route"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		),
	}

	wrappedRegistry.MustRegister(
		m.GatewayInvocations,
		m.GatewayLatency,
		m.BudgetDenials,
		m.BudgetMonthlyCost,
		m.BreakerState,
		m.HTTPRequests,
		m.HTTPLatency,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	return m
}
