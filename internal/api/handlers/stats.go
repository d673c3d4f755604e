package handlers

import (
	"net/http"

	"github.com/sourcemeter/server/internal/api/problem"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/metrics"
)

// StatsHandler serves corpus-wide snapshot statistics.
type StatsHandler struct {
	snapshots *snapshots.Service
	env       string
}

func NewStatsHandler(snapshotSvc *snapshots.Service, env string) *StatsHandler {
	return &StatsHandler{snapshots: snapshotSvc, env: env}
}

// Stats handles GET /api/v1/stats. Reading statistics also refreshes the
// corpus gauges exported at /metrics.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.snapshots.Stats(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError,
			"about:blank", "Stats query failed", err, h.env)
		return
	}

	metrics.SnapshotsTotal.Set(float64(stats.TotalSnapshots))
	metrics.SnapshotDomains.Set(float64(stats.DistinctDomain))

	writeJSON(w, http.StatusOK, stats)
}
