package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors of the scraping engine. A nil
// *Metrics is valid and turns every recording call into a no-op, which keeps
// one-shot CLI invocations and tests free of registry plumbing.
type Metrics struct {
	Registry         *prometheus.Registry
	AttemptsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RetriesTotal     prometheus.Counter
	RateLimitWait    prometheus.Histogram
	SimulationsTotal prometheus.Counter
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_scrape_attempts_total",
			Help: "Scrape attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricescout_request_duration_seconds",
			Help:    "HTTP request latency for source fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_retries_total",
			Help: "Retry attempts scheduled after failed scrapes.",
		},
	)
	rateLimitWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricescout_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a per-domain rate limit slot.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	simulations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_simulations_total",
			Help: "Aggregations that fell back to a simulated price.",
		},
	)

	registry.MustRegister(attempts, requestDuration, retries, rateLimitWait, simulations)

	return &Metrics{
		Registry:         registry,
		AttemptsTotal:    attempts,
		RequestDuration:  requestDuration,
		RetriesTotal:     retries,
		RateLimitWait:    rateLimitWait,
		SimulationsTotal: simulations,
	}
}

// IncAttempt records one attempt outcome for a source.
func (m *Metrics) IncAttempt(source, outcome string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRequest records an HTTP request duration.
func (m *Metrics) ObserveRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetry increments the retry counter.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// ObserveRateLimitWait records time spent suspended on the limiter.
func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWait.Observe(d.Seconds())
}

// IncSimulation increments the simulation fallback counter.
func (m *Metrics) IncSimulation() {
	if m == nil {
		return
	}
	m.SimulationsTotal.Inc()
}
