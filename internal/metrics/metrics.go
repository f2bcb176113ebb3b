// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login results.
const (
	LoginOK         = "ok"
	LoginRejected   = "rejected"
	LoginLoadFailed = "load_failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LoginAttempts  *prometheus.CounterVec
	StoreOps       *prometheus.CounterVec
	StoreDuration  *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge
	Updates        prometheus.Counter
}

// New creates the collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "students_form_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "students_form_store_operations_total",
			Help: "Backing store loads and saves by result",
		}, []string{"op", "result"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "students_form_store_duration_seconds",
			Help:    "Latency of backing store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "students_form_active_sessions",
			Help: "Sessions currently held in memory",
		}),
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "students_form_updates_total",
			Help: "Student records successfully updated",
		}),
	}
	reg.MustRegister(m.LoginAttempts, m.StoreOps, m.StoreDuration, m.ActiveSessions, m.Updates)
	return m
}

// ObserveStore records one store operation.
func (m *Metrics) ObserveStore(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
