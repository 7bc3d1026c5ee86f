package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Gallery operation metrics
	galleryOperationsTotal   *prometheus.CounterVec
	galleryOperationDuration *prometheus.HistogramVec
	galleryTemplates         *prometheus.GaugeVec
	galleryDataSizeBytes     *prometheus.GaugeVec
	templatesScannedTotal    *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utgallery_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "utgallery_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "utgallery_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Gallery operation metrics
		galleryOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utgallery_gallery_operations_total",
				Help: "Total number of gallery operations",
			},
			[]string{"operation", "status"},
		),

		galleryOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "utgallery_gallery_operation_duration_seconds",
				Help:    "Gallery operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		galleryTemplates: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "utgallery_gallery_templates",
				Help: "Number of templates in each open gallery",
			},
			[]string{"gallery"},
		),

		galleryDataSizeBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "utgallery_gallery_data_size_bytes",
				Help: "Size of each open gallery file in bytes",
			},
			[]string{"gallery"},
		),

		templatesScannedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utgallery_templates_scanned_total",
				Help: "Total number of templates visited by scans",
			},
			[]string{"mode"},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utgallery_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "utgallery_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the registered metrics for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordGalleryOperation records a gallery operation
func (m *Metrics) RecordGalleryOperation(operation string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.galleryOperationsTotal.WithLabelValues(operation, status).Inc()
	m.galleryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateGalleryStats updates the per-gallery gauges
func (m *Metrics) UpdateGalleryStats(gallery string, templates int, dataSize int64) {
	m.galleryTemplates.WithLabelValues(gallery).Set(float64(templates))
	m.galleryDataSizeBytes.WithLabelValues(gallery).Set(float64(dataSize))
}

// RecordScan records the number of templates a scan visited
func (m *Metrics) RecordScan(parallel bool, visited int) {
	mode := "sequential"
	if parallel {
		mode = "parallel"
	}
	m.templatesScannedTotal.WithLabelValues(mode).Add(float64(visited))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get(apiKeyHeader) != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
