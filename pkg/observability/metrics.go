package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login flow metrics
	LoginsTotal      *prometheus.CounterVec
	ScansTotal       *prometheus.CounterVec
	ScanSupersedes   prometheus.Counter
	FallbackResolved *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presenza_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "presenza_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presenza_logins_total",
				Help: "Login attempts by terminal outcome (established, assertion_invalid, card_mismatch)",
			},
			[]string{"outcome"},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presenza_card_scans_total",
				Help: "Card scan events by result",
			},
			[]string{"result"},
		),
		ScanSupersedes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "presenza_scan_supersedes_total",
				Help: "Scans that forced a logout of an authenticated session",
			},
		),
		FallbackResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presenza_fallback_resolutions_total",
				Help: "Session resolutions by channel (cookie, header, query) and outcome",
			},
			[]string{"channel", "outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.ScansTotal,
		m.ScanSupersedes,
		m.FallbackResolved,
	)

	return m
}

// RegisterSessionGauge exposes a backend-provided count of stored sessions.
// Only store backends that can count cheaply (the in-memory one) register it.
func (m *Metrics) RegisterSessionGauge(fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "presenza_sessions_active",
			Help: "Currently stored sessions",
		},
		fn,
	))
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and durations
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
