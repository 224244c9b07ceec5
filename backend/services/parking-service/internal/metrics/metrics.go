// Package metrics exposes Prometheus collectors for the parking service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkspot/backend/services/parking-service/internal/models"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	occupancy     *prometheus.GaugeVec
	notifyFailed  *prometheus.CounterVec
	notifyDropped prometheus.Counter
	requests      *prometheus.HistogramVec
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_session_transitions_total",
			Help: "Applied session state transitions by event.",
		}, []string{"event"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_session_rejections_total",
			Help: "Rejected lifecycle operations by event and reason.",
		}, []string{"event", "reason"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "parking_lot_occupied_spots",
			Help: "Occupied spots per lot as of the last adjustment.",
		}, []string{"lot_id"}),
		notifyFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_notification_failures_total",
			Help: "Notification delivery failures by stage.",
		}, []string{"stage"}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_notifications_dropped_total",
			Help: "Notifications dropped because the delivery queue was full.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.transitions,
		m.rejections,
		m.occupancy,
		m.notifyFailed,
		m.notifyDropped,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Transition counts an applied session event.
func (m *Metrics) Transition(ev models.SessionEvent) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(ev)).Inc()
}

// Rejection counts an operation refused with the given reason.
func (m *Metrics) Rejection(ev models.SessionEvent, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(ev), reason).Inc()
}

// Occupancy records the latest occupied count of a lot.
func (m *Metrics) Occupancy(lot *models.Lot) {
	if m == nil || lot == nil {
		return
	}
	m.occupancy.WithLabelValues(strconv.FormatInt(lot.ID, 10)).Set(float64(lot.OccupiedSpots))
}

// NotificationFailed counts a failed delivery stage.
func (m *Metrics) NotificationFailed(stage string) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(stage).Inc()
}

// NotificationDropped counts a notification discarded before delivery.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

// ObserveRequest records an HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
