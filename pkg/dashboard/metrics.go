package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics instruments refresh cycles.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	skipped         prometheus.Counter
	refreshDuration prometheus.Histogram
	lastSuccess     prometheus.Gauge
	backupsTotal    prometheus.Gauge
}

// NewMetrics creates the refresh metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backupmon_dashboard_refreshes_total",
			Help: "Refresh cycles by result",
		}, []string{"result"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backupmon_dashboard_refreshes_skipped_total",
			Help: "Timer refreshes skipped because one was in flight",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backupmon_dashboard_refresh_duration_seconds",
			Help:    "Duration of refresh cycles",
			Buckets: prometheus.DefBuckets,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backupmon_dashboard_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		}),
		backupsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backupmon_dashboard_backups",
			Help: "Total backups reported by the backend at the last refresh",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.refreshes, m.skipped, m.refreshDuration, m.lastSuccess, m.backupsTotal)
	}
	return m
}
