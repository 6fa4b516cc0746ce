// Package metrics exposes Prometheus instrumentation for report runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the run-level metrics. Notification kinds are labeled so
// operators can alert on outage notices separately from routine reports.
type Collector struct {
	RunsTotal          *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	TenantsDiscovered  prometheus.Gauge
}

// New registers the collectors with reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packetboat_runs_total",
			Help: "Report runs by terminal status",
		}, []string{"status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packetboat_notifications_total",
			Help: "Notifications delivered by kind",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "packetboat_run_duration_seconds",
			Help:    "Wall-clock duration of report runs",
			Buckets: prometheus.DefBuckets,
		}),
		TenantsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "packetboat_tenants_discovered",
			Help: "Tenants found during the most recent run",
		}),
	}

	reg.MustRegister(c.RunsTotal, c.NotificationsTotal, c.RunDuration, c.TenantsDiscovered)
	return c
}
