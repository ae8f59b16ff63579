package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

const namespace = "juristcu"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	scanRunsTotal          *prometheus.CounterVec
	scanDuration           *prometheus.HistogramVec
	scanDocumentsProcessed *prometheus.HistogramVec
	providerCallsTotal     *prometheus.CounterVec
	providerFailuresTotal  *prometheus.CounterVec
	providerFailoversTotal *prometheus.CounterVec
	parseFailuresTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	scanRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total finished corpus scans by outcome.",
		},
		[]string{"service", "outcome"},
	)
	scanDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Corpus scan duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"service", "outcome"},
	)
	scanDocumentsProcessed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "documents_processed",
			Help:      "Distribution of fully evaluated rulings per scan.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service"},
	)
	providerCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total completion calls by provider and result.",
		},
		[]string{"service", "provider", "result"},
	)
	providerFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Total failed completion calls by provider and classified kind.",
		},
		[]string{"service", "provider", "kind"},
	)
	providerFailoversTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "failovers_total",
			Help:      "Total provider switches after exhaustion.",
		},
		[]string{"service", "from", "to"},
	)
	parseFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "parse_failures_total",
			Help:      "Total provider responses that were not a valid verdict.",
		},
		[]string{"service", "provider"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		scanRunsTotal,
		scanDuration,
		scanDocumentsProcessed,
		providerCallsTotal,
		providerFailuresTotal,
		providerFailoversTotal,
		parseFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		scanRunsTotal:          scanRunsTotal,
		scanDuration:           scanDuration,
		scanDocumentsProcessed: scanDocumentsProcessed,
		providerCallsTotal:     providerCallsTotal,
		providerFailuresTotal:  providerFailuresTotal,
		providerFailoversTotal: providerFailoversTotal,
		parseFailuresTotal:     parseFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded; unknown paths collapse into one series.
func normalizePath(path string) string {
	switch strings.TrimSuffix(path, "/") {
	case "/api/v1/health", "/api/v1/info", "/api/v1/estatisticas", "/api/v1/analisar-caso", "/metrics":
		return strings.TrimSuffix(path, "/")
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) ProviderCall(provider domain.ProviderID, err error, kind domain.ErrorKind) {
	if err == nil {
		m.providerCallsTotal.WithLabelValues(m.service, string(provider), "ok").Inc()
		return
	}
	if kind == "" {
		kind = domain.KindTransient
	}
	m.providerCallsTotal.WithLabelValues(m.service, string(provider), "error").Inc()
	m.providerFailuresTotal.WithLabelValues(m.service, string(provider), string(kind)).Inc()
}

func (m *HTTPServerMetrics) ProviderFailover(from, to domain.ProviderID) {
	toLabel := string(to)
	if toLabel == "" {
		toLabel = "none"
	}
	m.providerFailoversTotal.WithLabelValues(m.service, string(from), toLabel).Inc()
}

func (m *HTTPServerMetrics) ParseFailure(provider domain.ProviderID) {
	m.parseFailuresTotal.WithLabelValues(m.service, string(provider)).Inc()
}

func (m *HTTPServerMetrics) ScanFinished(outcome *domain.ScanOutcome) {
	if outcome == nil {
		return
	}
	label := "completed"
	if outcome.Halted {
		label = string(outcome.HaltReason)
	}
	m.scanRunsTotal.WithLabelValues(m.service, label).Inc()
	m.scanDuration.WithLabelValues(m.service, label).Observe(outcome.Elapsed.Seconds())
	m.scanDocumentsProcessed.WithLabelValues(m.service).Observe(float64(outcome.DocumentsProcessed))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
