package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Backtest metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	tradesSimulated  prometheus.Counter
	signalsGenerated *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strata_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	r.tradesSimulated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_trades_simulated_total",
			Help: "Total number of closed trades produced by simulations",
		},
	)
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_signals_generated_total",
			Help: "Total number of buy/sell markers generated",
		},
		[]string{"action"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_indicator_cache_lookups_total",
			Help: "Indicator cache lookups by result",
		},
		[]string{"result"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strata_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesSimulated)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordTrades adds closed trades from one simulation.
func (r *Registry) RecordTrades(n int) {
	r.tradesSimulated.Add(float64(n))
}

// RecordSignals adds buy and sell marker counts.
func (r *Registry) RecordSignals(buys, sells int) {
	r.signalsGenerated.WithLabelValues("buy").Add(float64(buys))
	r.signalsGenerated.WithLabelValues("sell").Add(float64(sells))
}

// RecordCache adds indicator cache hits and misses.
func (r *Registry) RecordCache(hits, misses int) {
	r.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	r.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
