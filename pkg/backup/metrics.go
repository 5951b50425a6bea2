package backup

import "github.com/prometheus/client_golang/prometheus"

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics tracks backup runs.
type Metrics struct {
	runs        *prometheus.CounterVec
	removed     prometheus.Counter
	lastSuccess prometheus.Gauge
}

// NewMetrics creates the backup metrics and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backupmon_backup_runs_total",
			Help: "Backup runs by result",
		}, []string{"result"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backupmon_backup_files_removed_total",
			Help: "Expired backup and log files removed by retention cleanup",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backupmon_backup_last_success_timestamp_seconds",
			Help: "Unix time of the last backup run that produced a dump",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.removed, m.lastSuccess)
	}
	return m
}
