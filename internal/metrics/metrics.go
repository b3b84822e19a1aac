package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtodash"

// Metrics holds the dashboard's Prometheus collectors. All methods are safe
// on a nil *Metrics so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests       *prometheus.CounterVec
	APIDuration       *prometheus.HistogramVec
	Unauthorized      prometheus.Counter
	AuthVerifications *prometheus.CounterVec
	AuthActions       *prometheus.CounterVec
	WalletFetches     *prometheus.CounterVec
	NotificationLoads *prometheus.CounterVec
	ActiveClients     prometheus.Gauge
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests sent to the reminder API",
		}, []string{"route", "status"}),
		APIDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Reminder API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Unauthorized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "unauthorized_total",
			Help:      "401 responses that forced a logout",
		}),
		AuthVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verifications_total",
			Help:      "Session verifications by outcome",
		}, []string{"result"}),
		AuthActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "actions_total",
			Help:      "Login, register and logout attempts by outcome",
		}, []string{"action", "result"}),
		WalletFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "fetches_total",
			Help:      "Wallet balance fetches by outcome",
		}, []string{"result"}),
		NotificationLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "loads_total",
			Help:      "Notification list loads by outcome",
		}, []string{"result"}),
		ActiveClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_clients",
			Help:      "Browser clients with a live dashboard instance",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(route, statusLabel(status)).Inc()
	m.APIDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncUnauthorized() {
	if m == nil {
		return
	}
	m.Unauthorized.Inc()
}

func (m *Metrics) IncVerification(result string) {
	if m == nil {
		return
	}
	m.AuthVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAuthAction(action, result string) {
	if m == nil {
		return
	}
	m.AuthActions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) IncWalletFetch(result string) {
	if m == nil {
		return
	}
	m.WalletFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncNotificationLoad(result string) {
	if m == nil {
		return
	}
	m.NotificationLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) SetActiveClients(n int) {
	if m == nil {
		return
	}
	m.ActiveClients.Set(float64(n))
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status == http.StatusUnauthorized:
		return "401"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
