package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all sourcemeter metrics
const namespace = "sourcemeter"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Worker metrics
var (
	// WorkerSnapshotsComputed counts snapshots computed and upserted per run outcome
	WorkerSnapshotsComputed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_snapshots_computed_total",
			Help:      "Total number of reliability snapshots computed and upserted",
		},
	)

	// WorkerSnapshotsSkipped counts snapshot computations skipped because a row already existed
	WorkerSnapshotsSkipped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_snapshots_skipped_total",
			Help:      "Total number of snapshot computations skipped (snapshot already present)",
		},
	)

	// WorkerSnapshotErrors counts per-item scoring or storage failures tolerated by the run
	WorkerSnapshotErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_snapshot_errors_total",
			Help:      "Total number of per-item failures during batch scoring",
		},
	)

	// WorkerDomainDuration records how long each domain batch takes end to end
	WorkerDomainDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_domain_duration_seconds",
			Help:      "Duration of one domain's batch computation and commit",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"domain"},
	)

	// WorkerRuns counts batch runs by outcome (completed, fatal)
	WorkerRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_runs_total",
			Help:      "Total number of batch worker runs by outcome",
		},
		[]string{"outcome"},
	)
)

// Snapshot corpus gauges, refreshed by the stats collector
var (
	SnapshotsTotal = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total number of stored reliability snapshots",
		},
	)

	SnapshotDomains = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_domains",
			Help:      "Number of distinct domains with at least one snapshot",
		},
	)
)

// Init registers the Go runtime collectors and sets the app info gauge.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
