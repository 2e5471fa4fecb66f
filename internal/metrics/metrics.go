package metrics

import (
	"net/http"
	"strconv"
	"time"

	"zoombid/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zoombid"

// Metrics holds the application's Prometheus collectors
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	notificationsStored *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
}

// New registers the application collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	notificationsStored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_stored_total",
		Help:      "Notifications written by event kind.",
	}, []string{"kind"})

	notificationsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_failed_total",
		Help:      "Notification writes that failed by event kind.",
	}, []string{"kind"})

	registry.MustRegister(
		requestDuration,
		notificationsStored,
		notificationsFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:            registry,
		requestDuration:     requestDuration,
		notificationsStored: notificationsStored,
		notificationsFailed: notificationsFailed,
	}
}

// ObserveDispatch records the outcome of one notification fan-out
func (m *Metrics) ObserveDispatch(kind domain.EventKind, delivered, failed int) {
	m.notificationsStored.WithLabelValues(string(kind)).Add(float64(delivered))
	m.notificationsFailed.WithLabelValues(string(kind)).Add(float64(failed))
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware measures request latency labelled with the matched chi route
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
