package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments behind a private
// registry so that tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	pollAttempts       prometheus.Histogram
	collaboratorErrors *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeparser",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumeparser",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumeparser",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeparser",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total extraction runs by outcome.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumeparser",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end extraction run duration in seconds.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pollAttempts := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumeparser",
			Subsystem: "pipeline",
			Name:      "poll_attempts",
			Help:      "Distribution of status polls per OCR job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 60},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	collaboratorErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeparser",
			Subsystem: "pipeline",
			Name:      "collaborator_errors_total",
			Help:      "Total errors from external collaborators.",
		},
		[]string{"service", "collaborator"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		runsTotal,
		runDuration,
		pollAttempts,
		collaboratorErrors,
	)

	return &Metrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		runsTotal:          runsTotal,
		runDuration:        runDuration,
		pollAttempts:       pollAttempts,
		collaboratorErrors: collaboratorErrors,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts, durations and in-flight gauge for
// every gin request.
func (m *Metrics) Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next()

		m.requestTotal.WithLabelValues(
			service,
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(service, c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRun records one finished extraction run.
func (m *Metrics) RecordRun(service, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.runsTotal.WithLabelValues(service, status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// RecordPollAttempts records how many status polls one OCR job took.
func (m *Metrics) RecordPollAttempts(attempts int) {
	if attempts <= 0 {
		return
	}
	m.pollAttempts.Observe(float64(attempts))
}

// RecordCollaboratorError counts an error from a named collaborator.
func (m *Metrics) RecordCollaboratorError(service, collaborator string) {
	if collaborator == "" {
		collaborator = "unknown"
	}
	m.collaboratorErrors.WithLabelValues(service, collaborator).Inc()
}
