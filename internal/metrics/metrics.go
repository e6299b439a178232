// Package metrics exposes Prometheus instrumentation for the store, the
// selector cache, validator fetches and background workers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/walletview/internal/domain"
)

const namespace = "walletview"

// Metrics holds the collectors registered on its own registry.
// It implements selector.Recorder, store.Observer and validator.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	selectorCache  *prometheus.CounterVec
	storeUpdates   *prometheus.CounterVec
	validatorFetch *prometheus.CounterVec
	workerRuns     *prometheus.CounterVec
	workerDuration *prometheus.HistogramVec
	portfolioFiat  prometheus.Gauge
	portfolioAccts prometheus.Gauge
}

// New creates Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		selectorCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selector_cache_total",
			Help:      "Selector evaluations by selector and cache result.",
		}, []string{"selector", "result"}),
		storeUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_updates_total",
			Help:      "Store snapshot replacements by operation.",
		}, []string{"op"}),
		validatorFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validator_requests_total",
			Help:      "Validator lookups by outcome.",
		}, []string{"outcome"}),
		workerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_runs_total",
			Help:      "Background worker runs by worker and result.",
		}, []string{"worker", "result"}),
		workerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_run_duration_seconds",
			Help:      "Background worker run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"worker"}),
		portfolioFiat: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_total_fiat",
			Help:      "Total fiat value of the portfolio, excluding delegations.",
		}),
		portfolioAccts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_accounts",
			Help:      "Number of loaded portfolio accounts.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.selectorCache,
		m.storeUpdates,
		m.validatorFetch,
		m.workerRuns,
		m.workerDuration,
		m.portfolioFiat,
		m.portfolioAccts,
	)
	return m
}

func (m *Metrics) SelectorHit(name string) { m.selectorCache.WithLabelValues(name, "hit").Inc() }
func (m *Metrics) SelectorMiss(name string) { m.selectorCache.WithLabelValues(name, "miss").Inc() }

func (m *Metrics) StoreUpdated(op string) { m.storeUpdates.WithLabelValues(op).Inc() }

func (m *Metrics) ValidatorFetch(outcome string) { m.validatorFetch.WithLabelValues(outcome).Inc() }

// WorkerRun records one worker run. err decides the result label.
func (m *Metrics) WorkerRun(worker string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.workerRuns.WithLabelValues(worker, result).Inc()
	m.workerDuration.WithLabelValues(worker).Observe(d.Seconds())
}

// PortfolioUpdated sets the portfolio gauges. totalFiat is a decimal string.
func (m *Metrics) PortfolioUpdated(totalFiat string, accounts int) {
	f, _ := domain.SafeParse(totalFiat).Float64()
	m.portfolioFiat.Set(f)
	m.portfolioAccts.Set(float64(accounts))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
