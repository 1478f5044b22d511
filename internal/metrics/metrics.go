// Package metrics exposes sync engine activity as Prometheus counters.
package metrics

import (
	"strconv"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finsync"

// Sync implements syncengine.Observer
type Sync struct {
	items     *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	pulled    *prometheus.CounterVec
}

// NewSync registers the sync collectors on reg
func NewSync(reg prometheus.Registerer) *Sync {
	f := promauto.With(reg)
	return &Sync{
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "push_items_total",
			Help:      "Pushed items by entity kind, operation and outcome",
		}, []string{"kind", "operation", "outcome"}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "conflicts_total",
			Help:      "Conflicts reported to clients by entity kind and reason",
		}, []string{"kind", "reason"}),
		pulled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pulled_changes_total",
			Help:      "Changes served by pull, split into upserts and deletes",
		}, []string{"kind", "change"}),
	}
}

func (s *Sync) ItemProcessed(kind ledger.Kind, op syncengine.Operation, outcome string) {
	if op == "" {
		op = "unknown"
	}
	s.items.WithLabelValues(kind.String(), string(op), outcome).Inc()
}

func (s *Sync) ConflictDetected(kind ledger.Kind, reason syncengine.ConflictReason) {
	s.conflicts.WithLabelValues(kind.String(), string(reason)).Inc()
}

func (s *Sync) ChangesPulled(kind ledger.Kind, upserts, deletes int) {
	s.pulled.WithLabelValues(kind.String(), "upsert").Add(float64(upserts))
	s.pulled.WithLabelValues(kind.String(), "delete").Add(float64(deletes))
}

// BuildInfo registers a constant gauge carrying the running version
func BuildInfo(reg prometheus.Registerer, version string, maxBatch int) {
	promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build and sync configuration of the running server",
		ConstLabels: prometheus.Labels{"version": version, "max_batch": strconv.Itoa(maxBatch)},
	}).Set(1)
}
